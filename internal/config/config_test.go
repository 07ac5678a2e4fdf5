package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Store.Driver != DefaultStoreDriver {
		t.Fatalf("unexpected driver: %s", cfg.Store.Driver)
	}
	if cfg.OpenAI.MaxOutputTokens != DefaultMaxOutputTokens || cfg.OpenAI.ReasoningEffort != "low" {
		t.Fatalf("unexpected openai defaults: %+v", cfg.OpenAI)
	}
	if got := cfg.Postgres.ConnString(); got != "postgres://postgres:@127.0.0.1:5432/microscan?sslmode=disable" {
		t.Fatalf("unexpected conn string: %s", got)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9090"

[store]
driver = "mongo"

[auth]
jwt_secret = "from-file"

[openai]
model = "gpt-5-mini"
max_output_tokens = 1024
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@db:5432/x")
	t.Setenv("IMAGE_ANALYZE_PROMPT", "You review scans")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Store.Driver != "mongo" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("env should override file secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-5-mini" || cfg.OpenAI.MaxOutputTokens != 1024 {
		t.Fatalf("unexpected openai config: %+v", cfg.OpenAI)
	}
	if cfg.Postgres.ConnString() != "postgres://u:p@db:5432/x" {
		t.Fatalf("dsn override ignored: %s", cfg.Postgres.ConnString())
	}
	if cfg.Chat.SystemPrompt != "You review scans" {
		t.Fatalf("prompt override ignored: %q", cfg.Chat.SystemPrompt)
	}
}
