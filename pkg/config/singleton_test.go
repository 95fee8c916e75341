package config

import (
	"os"
	"sync"
	"testing"
)

func resetGlobal() {
	globalConfig = nil
	globalPath = ""
	initOnce = *new(sync.Once)
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:9191\"\n")

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9191" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:9191", cfg.Server.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	first := writeConfig(t, "database:\n  dsn: first.db\n")
	second := writeConfig(t, "database:\n  dsn: second.db\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("first Initialize() failed: %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}

	if got := GetConfig().Database.DSN; got != "first.db" {
		t.Errorf("expected first config to win, got %q", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetGlobal()

	if cfg := GetConfig(); cfg != nil {
		t.Errorf("expected nil config before initialization, got %+v", cfg)
	}
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	cfg := NewDefaultConfig()
	cfg.Database.DSN = "set.db"
	SetConfig(cfg)

	if GetConfig() != cfg {
		t.Error("expected GetConfig to return the config passed to SetConfig")
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, "database:\n  dsn: before.db\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("database:\n  dsn: after.db\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := ReloadConfig(""); err != nil {
		t.Fatalf("ReloadConfig() failed: %v", err)
	}

	if got := GetConfig().Database.DSN; got != "after.db" {
		t.Errorf("expected reloaded dsn %q, got %q", "after.db", got)
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, "database:\n  dsn: keep.db\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload to fail validation")
	}

	if got := GetConfig().Database.DSN; got != "keep.db" {
		t.Errorf("expected previous config to remain, got dsn %q", got)
	}
}

func TestMustGetConfig(t *testing.T) {
	resetGlobal()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic before initialization")
		}
	}()
	MustGetConfig()
}
