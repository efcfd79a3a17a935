package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server (ops API)
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Generator GeneratorConfig
	Connect   ConnectConfig
	Finance   FinanceConfig

	// Personas
	Personas []Persona

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// GeneratorConfig holds the text generation API configuration
type GeneratorConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ConnectConfig holds the publishing platform API configuration
type ConnectConfig struct {
	BaseURL string
	Timeout time.Duration

	// Token bucket rate limit (requests per second)
	RateLimit int
}

// FinanceConfig holds the market data provider configuration
type FinanceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Persona is one synthetic publishing identity
// ⭐ SSOT: 페르소나 자격증명은 여기서만 보관
type Persona struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Style    string `json:"style"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// PipelineConfig holds the post lifecycle policy
type PipelineConfig struct {
	TickInterval time.Duration // scheduler polling interval
	MaxRetries   int           // per-record retry budget
	BackoffBase  time.Duration // base of base*2^retry
	BackoffCap   time.Duration

	// Horizon tolerance windows
	Tolerance1h time.Duration
	Tolerance1d time.Duration
	Tolerance7d time.Duration

	MaxAssignmentsPerTopic int

	// DailyKeywords seed the scheduled trending-topic trigger
	DailyKeywords []string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "vox"),
			User:            getEnv("DB_USER", "vox"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		Generator: GeneratorConfig{
			BaseURL: getEnv("GEN_BASE_URL", "http://localhost:8300"),
			APIKey:  getEnv("GEN_API_KEY", ""),
			Model:   getEnv("GEN_MODEL", "commentary-v2"),
			Timeout: getEnvAsDuration("GEN_TIMEOUT", "60s"),
		},

		Connect: ConnectConfig{
			BaseURL:   getEnv("CONNECT_BASE_URL", "https://connect.example.com/api"),
			Timeout:   getEnvAsDuration("CONNECT_TIMEOUT", "30s"),
			RateLimit: getEnvAsInt("CONNECT_RATE_LIMIT", 2),
		},

		Finance: FinanceConfig{
			BaseURL: getEnv("FINANCE_BASE_URL", "https://finance.naver.com"),
			Timeout: getEnvAsDuration("FINANCE_TIMEOUT", "30s"),
		},

		// Personas
		Personas: getEnvAsPersonas("PERSONAS"),

		// Pipeline
		Pipeline: PipelineConfig{
			TickInterval:           getEnvAsDuration("PIPELINE_TICK_INTERVAL", "10m"),
			MaxRetries:             getEnvAsInt("PIPELINE_MAX_RETRIES", 3),
			BackoffBase:            getEnvAsDuration("PIPELINE_BACKOFF_BASE", "1m"),
			BackoffCap:             getEnvAsDuration("PIPELINE_BACKOFF_CAP", "30m"),
			Tolerance1h:            getEnvAsDuration("PIPELINE_TOLERANCE_1H", "5m"),
			Tolerance1d:            getEnvAsDuration("PIPELINE_TOLERANCE_1D", "30m"),
			Tolerance7d:            getEnvAsDuration("PIPELINE_TOLERANCE_7D", "30m"),
			MaxAssignmentsPerTopic: getEnvAsInt("PIPELINE_MAX_ASSIGNMENTS", 3),
			DailyKeywords:          getEnvAsSlice("TRIGGER_DAILY_KEYWORDS"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Env == "production" && len(c.Personas) == 0 {
		return fmt.Errorf("PERSONAS is required in production")
	}

	for i, p := range c.Personas {
		if p.ID == "" {
			return fmt.Errorf("persona %d: id is required", i)
		}
	}

	return nil
}

// PersonaByID returns the persona with the given ID
func (c *Config) PersonaByID(id string) (*Persona, bool) {
	for i := range c.Personas {
		if c.Personas[i].ID == id {
			return &c.Personas[i], true
		}
	}
	return nil, false
}

// PersonaIDs returns all configured persona IDs in order
func (c *Config) PersonaIDs() []string {
	ids := make([]string, 0, len(c.Personas))
	for _, p := range c.Personas {
		ids = append(ids, p.ID)
	}
	return ids
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsSlice parses a comma-separated list
func getEnvAsSlice(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

// getEnvAsPersonas parses a JSON array of personas
// 예: PERSONAS='[{"id":"value_kim","name":"가치투자 김부장", ...}]'
func getEnvAsPersonas(key string) []Persona {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var personas []Persona
	if err := json.Unmarshal([]byte(valueStr), &personas); err != nil {
		return nil
	}

	return personas
}
