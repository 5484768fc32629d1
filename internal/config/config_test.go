package config

import (
	"os"
	"testing"
)

func clearConfigEnvVars() {
	for _, k := range []string{
		"ECMACORE_GC_YOUNG_CAP",
		"ECMACORE_STACK_DEPTH_LIMIT",
		"ECMACORE_JOB_QUEUE_CAPACITY",
		"ECMACORE_CAN_COMPILE_STRINGS",
		"ECMACORE_DATABASE_DSN",
		"ECMACORE_DEBUG",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaultValues(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	cfg := Load()

	if cfg.GCYoungCap != 4096 {
		t.Errorf("expected GCYoungCap 4096, got %d", cfg.GCYoungCap)
	}
	if cfg.StackDepthLimit != 2000 {
		t.Errorf("expected StackDepthLimit 2000, got %d", cfg.StackDepthLimit)
	}
	if cfg.JobQueueCapacity != 0 {
		t.Errorf("expected JobQueueCapacity 0, got %d", cfg.JobQueueCapacity)
	}
	if cfg.CanCompileStrings {
		t.Error("expected CanCompileStrings false by default")
	}
	if cfg.DatabaseDSN != "ecmacore.db" {
		t.Errorf("expected default DatabaseDSN, got %q", cfg.DatabaseDSN)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	os.Setenv("ECMACORE_GC_YOUNG_CAP", "8192")
	os.Setenv("ECMACORE_STACK_DEPTH_LIMIT", "500")
	os.Setenv("ECMACORE_JOB_QUEUE_CAPACITY", "64")
	os.Setenv("ECMACORE_CAN_COMPILE_STRINGS", "true")
	os.Setenv("ECMACORE_DATABASE_DSN", "/tmp/custom.db")

	cfg := Load()

	if cfg.GCYoungCap != 8192 {
		t.Errorf("expected GCYoungCap 8192, got %d", cfg.GCYoungCap)
	}
	if cfg.StackDepthLimit != 500 {
		t.Errorf("expected StackDepthLimit 500, got %d", cfg.StackDepthLimit)
	}
	if cfg.JobQueueCapacity != 64 {
		t.Errorf("expected JobQueueCapacity 64, got %d", cfg.JobQueueCapacity)
	}
	if !cfg.CanCompileStrings {
		t.Error("expected CanCompileStrings true")
	}
	if cfg.DatabaseDSN != "/tmp/custom.db" {
		t.Errorf("expected custom DatabaseDSN, got %q", cfg.DatabaseDSN)
	}
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	os.Setenv("ECMACORE_GC_YOUNG_CAP", "not-a-number")
	os.Setenv("ECMACORE_STACK_DEPTH_LIMIT", "-5")

	cfg := Load()

	if cfg.GCYoungCap != 4096 {
		t.Errorf("expected fallback to default GCYoungCap, got %d", cfg.GCYoungCap)
	}
	if cfg.StackDepthLimit != 2000 {
		t.Errorf("expected fallback to default StackDepthLimit, got %d", cfg.StackDepthLimit)
	}
}

func TestRealmOptionsProducesFourOptions(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	cfg := Load()
	opts := cfg.RealmOptions()
	if len(opts) != 4 {
		t.Fatalf("expected 4 realm options, got %d", len(opts))
	}
}
