package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Ensure no ambient overrides leak into the defaults check
	for _, key := range []string{
		"PORT", "ENV", "MARKET", "DATA_DIR", "DB_ENABLED", "DATABASE_URL",
		"GATE_COOLDOWN_DAYS", "GATE_STATE_PATH", "EM_BASE_URL", "YF_RATE_PER_SEC",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8090" {
		t.Errorf("Expected default port 8090, got %s", cfg.Port)
	}
	if cfg.Market != "cn" {
		t.Errorf("Expected default market cn, got %s", cfg.Market)
	}
	if cfg.Database.Enabled {
		t.Error("Expected database disabled by default")
	}
	if cfg.Database.QueryTimeout != 20*time.Second {
		t.Errorf("Expected 20s query timeout, got %v", cfg.Database.QueryTimeout)
	}
	if cfg.Gate.CooldownDays != 3 {
		t.Errorf("Expected 3 cooldown days, got %d", cfg.Gate.CooldownDays)
	}
	if cfg.EastMoney.CacheTTL != 10*time.Minute {
		t.Errorf("Expected 10m spot TTL, got %v", cfg.EastMoney.CacheTTL)
	}
}

func TestLoadRejectsEnabledDBWithoutURL(t *testing.T) {
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENV", "development")

	if _, err := Load(); err == nil {
		t.Error("Expected error when DB_ENABLED=true without DATABASE_URL")
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("ENV", "quality-assurance")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown ENV")
	}
}

func TestLoadRejectsBadCooldown(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("GATE_COOLDOWN_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Error("Expected error for GATE_COOLDOWN_DAYS < 1")
	}
}

func TestMarketDataDir(t *testing.T) {
	cfg := &Config{DataDir: "data"}
	if got := cfg.MarketDataDir("cn"); got != "data/cn" {
		t.Errorf("Expected data/cn, got %s", got)
	}
}
