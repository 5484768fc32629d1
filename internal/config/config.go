// Package config loads engine tuning knobs from the environment (and an
// optional .env file), the same ECMACORE_-prefixed-env-var-with-typed-
// defaults shape the teacher's own internal/config/config.go uses for its
// MORFX_-prefixed keys.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/termfx/ecmacore/internal/engine"
	"github.com/termfx/ecmacore/internal/gc"
)

// Config holds every knob internal/engine.Realm and internal/vm.VM accept
// as an Option, sourced from environment variables so an embedder's CLI
// can tune them without recompiling.
type Config struct {
	GCYoungCap        int
	StackDepthLimit   int
	JobQueueCapacity  int
	CanCompileStrings bool
	DatabaseDSN       string
	Debug             bool
}

// Load reads a .env file if present (ignoring a missing-file error, same
// as the teacher's own test helpers do via `_ = godotenv.Load()`) and
// then builds a Config from the environment, falling back to defaults
// for anything unset or unparsable.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		GCYoungCap:        4096,
		StackDepthLimit:   2000,
		JobQueueCapacity:  0,
		CanCompileStrings: false,
		DatabaseDSN:       "ecmacore.db",
		Debug:             false,
	}

	if v := os.Getenv("ECMACORE_GC_YOUNG_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GCYoungCap = n
		}
	}
	if v := os.Getenv("ECMACORE_STACK_DEPTH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StackDepthLimit = n
		}
	}
	if v := os.Getenv("ECMACORE_JOB_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.JobQueueCapacity = n
		}
	}
	if v := os.Getenv("ECMACORE_CAN_COMPILE_STRINGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CanCompileStrings = b
		}
	}
	if v := os.Getenv("ECMACORE_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("ECMACORE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	return cfg
}

// RealmOptions translates this Config into the engine.Option list a
// cmd/ecmacore subcommand applies to engine.New, so the flag/env-parsing
// layer stays decoupled from internal/vm's lower-level gc.Config shape.
func (c *Config) RealmOptions() []engine.Option {
	return []engine.Option{
		engine.WithGCConfig(gc.Config{
			YoungCountThreshold: c.GCYoungCap,
			ByteThreshold:       gc.DefaultConfig().ByteThreshold,
			PromoteAge:          gc.DefaultConfig().PromoteAge,
		}),
		engine.WithMaxCallDepth(c.StackDepthLimit),
		engine.WithJobQueueCapacity(c.JobQueueCapacity),
		engine.WithCanCompileStrings(c.CanCompileStrings),
	}
}
