package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vox/backend/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "파이프라인 상태 조회",
	Long: `포스트 레코드를 라이프사이클 상태별로 집계합니다.

표시 정보:
- 상태별 레코드 수 (assigned ~ done, error)
- 전체 레코드 수

Example:
  go run ./cmd/vox status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vox Pipeline Status ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := a.Repo.CountByState(ctx)
	if err != nil {
		return fmt.Errorf("count by state: %w", err)
	}

	order := []contracts.LifecycleState{
		contracts.StateAssigned,
		contracts.StateReadyToGen,
		contracts.StateReadyToPost,
		contracts.StatePublished,
		contracts.StateCollecting,
		contracts.StateDone,
		contracts.StateError,
	}

	fmt.Println("\n📊 Records by state")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	total := 0
	for _, state := range order {
		fmt.Printf("%-15s %10d\n", string(state)+":", counts[state])
		total += counts[state]
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-15s %10d\n", "total:", total)
	return nil
}
