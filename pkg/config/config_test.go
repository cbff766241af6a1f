package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", c.Server.Port)
	}
	if !c.Trading.TestMode || c.Trading.Strategy != "combined" {
		t.Fatalf("unexpected trading defaults %+v", c.Trading)
	}
	if c.Trading.CycleInterval != 60*time.Second {
		t.Fatalf("unexpected cycle interval %v", c.Trading.CycleInterval)
	}
	if c.Trading.Risk.MaxPositionFraction != 0.1 || c.Trading.Risk.MinOrderNotional != 10 {
		t.Fatalf("unexpected risk defaults %+v", c.Trading.Risk)
	}
	if c.Persistence.Type != "file" || c.Events.Backend != "none" {
		t.Fatalf("unexpected backends %q %q", c.Persistence.Type, c.Events.Backend)
	}
}

func TestLoadOverridesAndAutostartDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: prod
trading:
  strategy: rsi
  cycle_interval: 15s
  risk:
    stop_loss_fraction: 0.05
  autostart:
    - symbol: BTCUSDT
    - symbol: ETHUSDT
      interval: 15m
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Trading.Strategy != "rsi" || c.Trading.CycleInterval != 15*time.Second {
		t.Fatalf("overrides lost: %+v", c.Trading)
	}
	if c.Trading.Risk.StopLossFraction != 0.05 || c.Trading.Risk.TakeProfitFraction != 0.03 {
		t.Fatalf("risk merge wrong: %+v", c.Trading.Risk)
	}
	if len(c.Trading.Autostart) != 2 || c.Trading.Autostart[0].Interval != "1h" || c.Trading.Autostart[1].Interval != "15m" {
		t.Fatalf("autostart wrong: %+v", c.Trading.Autostart)
	}
}

func TestValidateRejectsLiveWithoutKeys(t *testing.T) {
	path := writeConfig(t, "environment: prod\ntrading:\n  test_mode: false\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestValidateBackends(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	c.Events.Backend = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected brokers error")
	}
	c.Kafka.Brokers = []string{"localhost:9092"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Persistence.Type = "redis"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected redis requirement error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("STRATEGY", "bollinger")
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Trading.Strategy != "bollinger" || c.Server.Port != 9090 {
		t.Fatalf("env overrides not applied: %q %d", c.Trading.Strategy, c.Server.Port)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers not split: %v", c.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	c, _ := Default()
	c.Persistence.Postgres.Password = "secret"
	dsn := c.PostgresDSN()
	if !strings.Contains(dsn, "dbname=tradedesk") || !strings.Contains(dsn, "password=secret") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
}
