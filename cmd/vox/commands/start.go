package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vox/backend/internal/api"
	"github.com/wonny/vox/backend/internal/api/handlers"
	"github.com/wonny/vox/backend/internal/scheduler"
	"github.com/wonny/vox/backend/internal/scheduler/jobs"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "파이프라인 데몬 시작",
	Long: `라이프사이클 스케줄러와 운영 API 서버를 시작합니다.

등록되는 작업:
- lifecycle_tick: 틱 간격마다 (기본 10분, 상태 전이 수행)
- trending_trigger: 평일 오전 9시 (설정 키워드로 토픽 생성)
- limitup_trigger: 평일 오후 4시 10분 (상한가 종목 토픽 생성)
- record_retention: 매일 새벽 3시 (만료 레코드 정리)

운영 API:
  GET  /health
  GET  /api/v1/posts?state=...
  GET  /api/v1/posts/counts
  GET  /api/v1/posts/{id}
  GET  /api/v1/scheduler/stats
  POST /api/v1/trigger

Example:
  go run ./cmd/vox start
  go run ./cmd/vox start --port 8091`,
	RunE: runStart,
}

var (
	startPort      string
	startRetention time.Duration
)

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startPort, "port", "", "운영 API 포트 (기본: PORT 환경변수)")
	startCmd.Flags().DurationVar(&startRetention, "retention", 90*24*time.Hour, "종료 레코드 보존 기간")
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vox Pipeline Daemon ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if startPort != "" {
		a.Config.Port = startPort
	}

	// Schema bootstrap
	ctx := context.Background()
	if err := a.Repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Logger.Info("Schema ready")

	// Register jobs
	sched := scheduler.New(a.Logger)
	jobList := []scheduler.Job{
		jobs.NewTickJob(a.Scheduler, a.Config.Pipeline.TickInterval, a.Logger),
		jobs.NewTrendingJob(a.Manager, a.Config.Pipeline.DailyKeywords, a.Logger),
		jobs.NewLimitUpJob(a.Manager, a.Logger),
		jobs.NewRetentionJob(a.Repo, startRetention, a.Logger),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}
	sched.Start()

	// Ops API
	postsHandler := handlers.NewPostsHandler(a.Repo, a.Logger)
	opsHandler := handlers.NewOpsHandler(sched, a.Manager, a.Logger)
	router := api.NewRouter(postsHandler, opsHandler, a.Logger)
	server := api.New(a.Config, a.Logger, router)

	go func() {
		if err := server.Start(); err != nil {
			a.Logger.WithError(err).Fatal("Failed to start ops API server")
		}
	}()

	fmt.Printf("\n✅ Daemon running, ops API on http://localhost:%s\n", a.Config.Port)
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.Logger.Info("Shutting down...")

	// In-flight job runs complete before further dispatch halts
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.Logger.Info("Daemon stopped")
	return nil
}
