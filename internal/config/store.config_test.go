package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.RequireInitData || cfg.AllowTestInitData {
		t.Error("launch-data policies must default to off")
	}
	if cfg.SendTimeout != 10*time.Second {
		t.Errorf("SendTimeout = %v, want 10s", cfg.SendTimeout)
	}
	if cfg.RateLimit != 100 || cfg.RateWindow != time.Minute {
		t.Errorf("rate limits = %d/%v, want 100/1m", cfg.RateLimit, cfg.RateWindow)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("SUPER_ADMIN_ID", "1000")
	t.Setenv("REQUIRE_INIT_DATA", "true")
	t.Setenv("SEND_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT", "5")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" || cfg.BotToken != "123:abc" || cfg.SuperAdminID != "1000" {
		t.Errorf("cfg = %+v, env values not picked up", cfg)
	}
	if !cfg.RequireInitData {
		t.Error("REQUIRE_INIT_DATA=true not honored")
	}
	if cfg.SendTimeout != 3*time.Second || cfg.RateLimit != 5 {
		t.Errorf("SendTimeout = %v, RateLimit = %d", cfg.SendTimeout, cfg.RateLimit)
	}
}

func TestGarbageValuesFallBack(t *testing.T) {
	t.Setenv("REQUIRE_INIT_DATA", "definitely")
	t.Setenv("SEND_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT", "many")

	cfg := Load()

	if cfg.RequireInitData {
		t.Error("garbage bool should fall back to default")
	}
	if cfg.SendTimeout != 10*time.Second || cfg.RateLimit != 100 {
		t.Errorf("SendTimeout = %v, RateLimit = %d, want defaults", cfg.SendTimeout, cfg.RateLimit)
	}
}
