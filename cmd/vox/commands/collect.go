package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vox/backend/internal/contracts"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect [post_id]",
	Short: "인게이지먼트 수동 수집",
	Long: `특정 포스트의 인게이지먼트를 즉시 수집합니다.

스케줄된 허용오차 창과 무관하게 현재 시점의 수치를 가져옵니다.
--save를 주면 (post, horizon) 단위로 저장합니다. 이미 저장된
호라이즌이면 기존 샘플이 유지됩니다.

Example:
  go run ./cmd/vox collect T-p1 --horizon 1h
  go run ./cmd/vox collect T-p1 --horizon 7d --save`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

var (
	collectHorizon string
	collectSave    bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectHorizon, "horizon", "1h", "수집 호라이즌 (1h|1d|7d)")
	collectCmd.Flags().BoolVar(&collectSave, "save", false, "수집 결과를 저장")
}

func runCollect(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vox Manual Collection ===")

	horizon := contracts.Horizon(collectHorizon)
	if !horizon.Valid() {
		return fmt.Errorf("unknown horizon %q, expected 1h, 1d or 7d", collectHorizon)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rec, err := a.Repo.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}

	sample, err := a.Collector.Collect(ctx, rec, horizon)
	if err != nil {
		return fmt.Errorf("collect failed: %w", err)
	}

	fmt.Printf("\n📊 Engagement for %s @ %s\n", rec.PostID, horizon)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-12s %d\n", "Likes:", sample.Likes)
	fmt.Printf("%-12s %d\n", "Comments:", sample.Comments)
	fmt.Printf("%-12s %d\n", "Shares:", sample.Shares)
	for name, count := range sample.Reactions {
		fmt.Printf("%-12s %d\n", name+":", count)
	}
	fmt.Printf("%-12s %d\n", "Total:", sample.Total())

	if collectSave {
		if err := a.Repo.AppendMetrics(ctx, sample); err != nil {
			return fmt.Errorf("save metrics: %w", err)
		}
		fmt.Println("\n✅ Sample saved")
	}
	return nil
}
