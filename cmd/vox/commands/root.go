package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vox",
	Short: "Vox - 페르소나 주식 코멘터리 파이프라인",
	Long: `Vox Unified CLI

합성 페르소나 기반 주식 코멘터리 시스템.
토픽 수집부터 발행, 인게이지먼트 수집까지 전체 라이프사이클을 관리합니다.

Usage:
  go run ./cmd/vox [command]

Examples:
  go run ./cmd/vox start
  go run ./cmd/vox tick
  go run ./cmd/vox trigger trending_topic --keywords 반도체,2차전지
  go run ./cmd/vox status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
