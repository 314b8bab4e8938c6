package config

import (
	"errors"
	"os"
	"path/filepath"
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

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if c.Trading.MinAmount != 100 || c.Trading.MaxAmount != 10000 {
		t.Fatalf("unexpected trading bounds: %+v", c.Trading)
	}
	if len(c.DeFi.TargetVenues) != 5 {
		t.Fatalf("expected 5 default venues, got %v", c.DeFi.TargetVenues)
	}
	if c.Cache.SentimentTTL != 5*time.Minute || c.Cache.DocumentsTTL != 15*time.Minute {
		t.Fatalf("unexpected cache ttls: %+v", c.Cache)
	}
	if c.Providers.Timeout != 5*time.Second {
		t.Fatalf("unexpected provider timeout: %v", c.Providers.Timeout)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: prod
trading:
  min_amount: 50
  max_amount: 500
defi:
  min_liquidity: 0
  target_venues: [uniswap-v3]
scheduler:
  tokens: [ARB]
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "prod" || c.Trading.MinAmount != 50 || c.Trading.MaxAmount != 500 {
		t.Fatalf("file values not applied: %+v", c.Trading)
	}
	if c.DeFi.MinLiquidity != 0 {
		t.Fatalf("explicit zero overwritten by default: %v", c.DeFi.MinLiquidity)
	}
	if len(c.DeFi.TargetVenues) != 1 || c.Scheduler.Tokens[0] != "ARB" {
		t.Fatalf("lists not replaced: %v %v", c.DeFi.TargetVenues, c.Scheduler.Tokens)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("default port lost: %d", c.Server.Port)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"max below min", "trading:\n  min_amount: 100\n  max_amount: 10\n"},
		{"no venues", "defi:\n  target_venues: []\n"},
		{"bad social kind", "providers:\n  social:\n    - name: x\n      kind: myspace\n      url: http://x\n"},
		{"auto execute without key", "trading:\n  auto_execute: true\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n  brokers: []\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TOKENS", "BTC, ETH ,,SOL")
	t.Setenv("EXECUTION_API_KEY", "k")
	t.Setenv("AUTO_EXECUTE", "true")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if len(c.Scheduler.Tokens) != 3 || c.Scheduler.Tokens[1] != "ETH" {
		t.Fatalf("unexpected tokens: %v", c.Scheduler.Tokens)
	}
	if !c.Trading.AutoExecute || c.Credentials.ExecutionAPIKey != "k" {
		t.Fatalf("env overrides not applied: %+v", c.Trading)
	}
}
