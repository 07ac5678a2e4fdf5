package main

import (
	"context"
	"testing"

	"github.com/microscanai/microscan/internal/config"
	"github.com/microscanai/microscan/internal/store/memory"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{Driver: "memory"}}
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{Driver: "sqlite"}}
	if _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestConfigPathPrefersFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/microscan/config.toml")
	if got := configPath(); got != "/etc/microscan/config.toml" {
		t.Fatalf("unexpected env path: %s", got)
	}
	configFlag = "local.toml"
	defer func() { configFlag = "" }()
	if got := configPath(); got != "local.toml" {
		t.Fatalf("flag should win, got %s", got)
	}
}
