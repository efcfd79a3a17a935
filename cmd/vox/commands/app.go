package commands

import (
	"fmt"

	"github.com/wonny/vox/backend/internal/assign"
	"github.com/wonny/vox/backend/internal/classify"
	"github.com/wonny/vox/backend/internal/external/connect"
	"github.com/wonny/vox/backend/internal/external/finance"
	"github.com/wonny/vox/backend/internal/external/genapi"
	"github.com/wonny/vox/backend/internal/interactions"
	"github.com/wonny/vox/backend/internal/lifecycle"
	"github.com/wonny/vox/backend/internal/store"
	"github.com/wonny/vox/backend/internal/trigger"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/database"
	"github.com/wonny/vox/backend/pkg/httputil"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// app holds the wired dependency graph shared by every command
// ⭐ SSOT: 의존성 조립은 이 파일에서만
type app struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *database.DB
	Redis  *redis.Client
	Cache  *redis.Cache

	Repo      *store.Repository
	Manager   *trigger.Manager
	Scheduler *lifecycle.Scheduler
	Collector *interactions.Collector
}

// newApp loads config and wires every component
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var cache *redis.Cache
	var limiter *redis.RateLimiter
	if redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "vox")
		limiter = redis.NewRateLimiter(redisClient, "vox")
	}

	// External clients
	genClient := genapi.NewClient(cfg, httputil.NewWithTimeout(cfg, log, cfg.Generator.Timeout), limiter, log)
	connectClient := connect.NewClient(cfg, httputil.NewWithTimeout(cfg, log, cfg.Connect.Timeout), log)
	financeClient := finance.NewClient(cfg, httputil.NewWithTimeout(cfg, log, cfg.Finance.Timeout), limiter, log)

	// Intake pipeline
	repo := store.NewRepository(db.Pool)
	classifier := classify.New(genClient, cache, log)
	resolver := assign.NewResolver(financeClient, cache, log)
	engine := assign.NewEngine(repo, resolver, cfg, cache, log)
	manager := trigger.NewManager(classifier, engine, financeClient, log)

	// Lifecycle pipeline
	sessions := interactions.NewSessions(connectClient, cfg, cache, log)
	publisher := interactions.NewPublisher(connectClient, sessions, log)
	collector := interactions.NewCollector(connectClient, sessions, log)
	sched := lifecycle.NewScheduler(repo, genClient, publisher, collector, cfg, cache, log)

	return &app{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Redis:     redisClient,
		Cache:     cache,
		Repo:      repo,
		Manager:   manager,
		Scheduler: sched,
		Collector: collector,
	}, nil
}

// Close releases shared connections
func (a *app) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
