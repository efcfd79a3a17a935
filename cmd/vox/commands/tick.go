package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// tickCmd represents the tick command
var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "라이프사이클 틱 1회 실행",
	Long: `라이프사이클 스케줄러 틱을 한 번만 실행합니다.

생성 대기 레코드의 콘텐츠 생성, 발행 대기 레코드의 발행,
발행된 레코드의 인게이지먼트 수집까지 한 패스를 수행합니다.
데몬 없이 수동으로 파이프라인을 전진시킬 때 사용합니다.

Example:
  go run ./cmd/vox tick`,
	RunE: runTick,
}

var tickTimeout time.Duration

func init() {
	rootCmd.AddCommand(tickCmd)

	tickCmd.Flags().DurationVar(&tickTimeout, "timeout", 5*time.Minute, "틱 전체 타임아웃")
}

func runTick(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vox Manual Tick ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	if err := a.Repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	start := time.Now()
	if err := a.Scheduler.RunTick(ctx); err != nil {
		return fmt.Errorf("tick failed: %w", err)
	}

	fmt.Printf("\n✅ Tick completed in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}
