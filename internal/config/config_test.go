package config

import (
	"os"
	"testing"
)

func unsetStorageEnv() {
	_ = os.Unsetenv("EPISODE_DB_DRIVER")
	_ = os.Unsetenv("EPISODE_SQLITE_PATH")
	_ = os.Unsetenv("EPISODE_POSTGRES_DSN")
}

func TestResolveDefaultsMemory(t *testing.T) {
	unsetStorageEnv()
	defer unsetStorageEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "memory" {
		t.Fatalf("expected memory fallback, got %s", cfg.DBDriver)
	}
	if cfg.GetHTTPAddr() != ":8080" {
		t.Fatalf("http addr: %s", cfg.GetHTTPAddr())
	}
}

func TestResolveDefaultsSQLiteFromPath(t *testing.T) {
	unsetStorageEnv()
	_ = os.Setenv("EPISODE_SQLITE_PATH", "/tmp/episodes.db")
	defer unsetStorageEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsPostgresFromDSN(t *testing.T) {
	unsetStorageEnv()
	_ = os.Setenv("EPISODE_POSTGRES_DSN", "postgres://localhost/episodes")
	defer unsetStorageEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsRejectsIncompleteDriver(t *testing.T) {
	unsetStorageEnv()
	_ = os.Setenv("EPISODE_DB_DRIVER", "sqlite")
	defer unsetStorageEnv()

	if _, err := New(); err == nil {
		t.Fatalf("sqlite without path should fail")
	}

	_ = os.Setenv("EPISODE_DB_DRIVER", "bogus")
	if _, err := New(); err == nil {
		t.Fatalf("unknown driver should fail")
	}
}
