package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vox/backend/internal/contracts"
)

// triggerCmd represents the trigger command
var triggerCmd = &cobra.Command{
	Use:   "trigger [kind]",
	Short: "트리거 수동 실행",
	Long: `트리거 이벤트를 수동으로 실행합니다.

지원 종류:
  trending_topic   - 키워드 기반 토픽 생성 (--keywords)
  limit_up         - 오늘의 상한가 종목 토픽 생성
  stock_list       - 지정 종목 토픽 생성 (--stocks)
  news_event       - 뉴스 이벤트 토픽 생성 (--payload title=...)
  earnings_report  - 실적 발표 토픽 생성 (--stocks, --payload period=...)

Example:
  go run ./cmd/vox trigger trending_topic --keywords 반도체,2차전지
  go run ./cmd/vox trigger limit_up
  go run ./cmd/vox trigger stock_list --stocks 005930,000660
  go run ./cmd/vox trigger news_event --payload title="금리 동결" --payload id=evt-1`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

var (
	triggerKeywords []string
	triggerStocks   []string
	triggerPayload  []string
)

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().StringSliceVar(&triggerKeywords, "keywords", nil, "트렌딩 키워드 (쉼표 구분)")
	triggerCmd.Flags().StringSliceVar(&triggerStocks, "stocks", nil, "종목코드 (쉼표 구분)")
	triggerCmd.Flags().StringArrayVar(&triggerPayload, "payload", nil, "핸들러별 입력 (key=value, 반복 가능)")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vox Manual Trigger ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	payload := make(map[string]string, len(triggerPayload))
	for _, kv := range triggerPayload {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed payload entry %q, expected key=value", kv)
		}
		payload[parts[0]] = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := a.Repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	result, err := a.Manager.Execute(ctx, contracts.TriggerConfig{
		Kind:       contracts.TriggerKind(args[0]),
		Keywords:   triggerKeywords,
		StockCodes: triggerStocks,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("trigger failed: %w", err)
	}

	fmt.Printf("\n✅ Trigger completed\n")
	fmt.Printf("%-12s %d\n", "Processed:", result.Processed)
	fmt.Printf("%-12s %d\n", "Generated:", result.Generated)
	if len(result.Errors) > 0 {
		fmt.Printf("\n⚠️  Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
