package main

import (
	"github.com/termfx/ecmacore/host"
	"github.com/termfx/ecmacore/internal/config"
	"github.com/termfx/ecmacore/internal/engine"
	"github.com/termfx/ecmacore/internal/hostrecord"
)

// buildRealm wires internal/config's tuning knobs and, when moduleRoot is
// non-empty, a host.FSModuleLoader rooted there, into a fresh engine.Realm
// — the one place every subcommand assembles its realm the same way.
func buildRealm(cfg *config.Config, moduleRoot string) *engine.Realm {
	opts := cfg.RealmOptions()
	if moduleRoot != "" {
		opts = append(opts, engine.WithModuleLoader(host.NewFSModuleLoader(moduleRoot)))
	}
	return engine.New(opts...)
}

// openStore connects internal/hostrecord against cfg.DatabaseDSN, the
// backing store every subcommand's --record / inspect flows share.
func openStore(cfg *config.Config) (*hostrecord.Store, error) {
	return hostrecord.Open(cfg.DatabaseDSN, cfg.Debug)
}
