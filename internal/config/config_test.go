package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocero.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Speech.TokenTTLSeconds != 300 {
		t.Errorf("speech.token_ttl_seconds = %d, want 300", cfg.Speech.TokenTTLSeconds)
	}
	if cfg.Agent.MaxToolRounds != 3 {
		t.Errorf("agent.max_tool_rounds = %d, want 3", cfg.Agent.MaxToolRounds)
	}
	if cfg.Ledger.Redis.KeyPrefix != "vocero:appointment:" {
		t.Errorf("ledger.redis.key_prefix = %q, want default", cfg.Ledger.Redis.KeyPrefix)
	}
	if cfg.Ledger.Redis.TTLSeconds != 0 {
		t.Errorf("ledger.redis.ttl_seconds = %d, want 0", cfg.Ledger.Redis.TTLSeconds)
	}
}

func TestLoadRedisLedgerSettings(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ledger:
  backend: redis
  redis:
    addr: redis.internal:6380
    db: 2
    key_prefix: "clinic-norte:cita:"
    ttl_seconds: 86400
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Backend != "redis" {
		t.Errorf("ledger.backend = %q, want redis", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Redis.Addr != "redis.internal:6380" {
		t.Errorf("ledger.redis.addr = %q", cfg.Ledger.Redis.Addr)
	}
	if cfg.Ledger.Redis.KeyPrefix != "clinic-norte:cita:" {
		t.Errorf("ledger.redis.key_prefix = %q", cfg.Ledger.Redis.KeyPrefix)
	}
	if cfg.Ledger.Redis.TTLSeconds != 86400 {
		t.Errorf("ledger.redis.ttl_seconds = %d", cfg.Ledger.Redis.TTLSeconds)
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	if _, err := Load(writeConfig(t, "carrier:\n  backend: pigeon\n")); err == nil {
		t.Error("expected error for unknown carrier backend")
	}
	if _, err := Load(writeConfig(t, "ledger:\n  backend: parchment\n")); err == nil {
		t.Error("expected error for unknown ledger backend")
	}
}
