package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server (read-only status API)
	Port string
	Env  string // development, staging, production

	// Market / pipeline
	Market  string // "cn" (A-share) is the only supported market for now
	DataDir string // root of data/{market}/{cache,history,reports}

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	EastMoney EastMoneyConfig
	Yahoo     YahooConfig

	// Gate discipline
	Gate GateConfig

	// Strategy files
	WeightsFile string
	SymbolsFile string
	RulesGlob   string

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
// DB provider는 선택적: Enabled=false면 DB 기반 DataSource는 MISSING 블록을 반환
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Per-query deadline (legacy gap: DB calls had no timeout)
	QueryTimeout time.Duration
}

// EastMoneyConfig holds EastMoney endpoint configuration
type EastMoneyConfig struct {
	BaseURL  string
	PushURL  string // push2 quote API host
	Timeout  time.Duration
	CacheTTL time.Duration // short spot-quote TTL (10 minutes in the legacy system)
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL string
	Timeout time.Duration
	// Requests per second for the local limiter; Yahoo resets connections when hammered
	RatePerSec float64
}

// GateConfig holds Gate state machine discipline settings
type GateConfig struct {
	StatePath    string // authoritative gate state record
	CooldownDays int    // calendar days before Normal may be re-entered
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Market:  getEnv("MARKET", "cn"),
		DataDir: dataDir,

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", "20s"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		EastMoney: EastMoneyConfig{
			BaseURL:  getEnv("EM_BASE_URL", "https://datacenter-web.eastmoney.com"),
			PushURL:  getEnv("EM_PUSH_URL", "https://push2.eastmoney.com"),
			Timeout:  getEnvAsDuration("EM_TIMEOUT", "15s"),
			CacheTTL: getEnvAsDuration("EM_SPOT_TTL", "10m"),
		},

		Yahoo: YahooConfig{
			BaseURL:    getEnv("YF_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:    getEnvAsDuration("YF_TIMEOUT", "20s"),
			RatePerSec: getEnvAsFloat("YF_RATE_PER_SEC", 2.0),
		},

		Gate: GateConfig{
			StatePath:    getEnv("GATE_STATE_PATH", filepath.Join(dataDir, "cn", "cache", "gate", "gate_state.json")),
			CooldownDays: getEnvAsInt("GATE_COOLDOWN_DAYS", 3),
		},

		WeightsFile: getEnv("WEIGHTS_FILE", "config/weights.yaml"),
		SymbolsFile: getEnv("SYMBOLS_FILE", "config/symbols.yaml"),
		RulesGlob:   getEnv("GATE_RULES_GLOB", "config/rules/*.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
// 배포 실수는 여기서만 치명적으로 처리한다 (데이터 품질 이벤트와 구분)
func (c *Config) validate() error {
	if c.Market == "" {
		return fmt.Errorf("MARKET is required")
	}

	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}

	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	if c.Gate.CooldownDays < 1 {
		return fmt.Errorf("GATE_COOLDOWN_DAYS must be >= 1")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return nil
}

// MarketDataDir returns the data root for a market, e.g. data/cn
func (c *Config) MarketDataDir(market string) string {
	return filepath.Join(c.DataDir, market)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",
		"backend/.env",
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
