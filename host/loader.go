// Package host is the optional embedder harness layered on top of
// internal/engine: a filesystem-backed ModuleLoader and a diff-based
// inspector, neither of which the core itself needs (spec.md explicitly
// scopes a host I/O layer out of the engine proper).
package host

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FSModuleLoader resolves import specifiers against the local filesystem,
// relative to the referencing module's own directory — the same
// relative-path resolution an embedder's `import "./lib/util.js"` expects.
// It implements internal/engine.ModuleLoader.
type FSModuleLoader struct {
	root      string
	preloaded map[string]string
}

// NewFSModuleLoader creates a loader rooted at root: every referrer and
// resolved specifier is made relative to it, and root is the base
// directory Preload globs against.
func NewFSModuleLoader(root string) *FSModuleLoader {
	return &FSModuleLoader{root: root, preloaded: make(map[string]string)}
}

// Resolve implements engine.ModuleLoader: join specifier against
// referrer's directory (or root, for the entry module, whose referrer is
// empty), returning the resolved absolute path as resolvedSpecifier and
// its contents as source. A module already read in by Preload is served
// from memory instead of hitting the filesystem again.
func (l *FSModuleLoader) Resolve(specifier, referrer string) (source, resolvedSpecifier string, err error) {
	base := l.root
	if referrer != "" {
		base = filepath.Dir(referrer)
	}
	resolved := filepath.Clean(filepath.Join(base, specifier))

	if src, ok := l.preloaded[resolved]; ok {
		return src, resolved, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", "", fmt.Errorf("host: failed to resolve %q from %q: %w", specifier, referrer, err)
	}
	return string(data), resolved, nil
}

// Preload reads every file under root matching pattern (a doublestar glob,
// so `**/*.js` reaches into subdirectories the way a plain filepath.Glob
// cannot) and caches its contents for Resolve, the directory-seeded module
// preloading `cmd/ecmacore run --glob` drives. Returns the resolved paths
// it cached, for a caller that wants to report what was picked up.
func (l *FSModuleLoader) Preload(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(l.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("host: bad glob pattern %q: %w", pattern, err)
	}

	var loaded []string
	for _, rel := range matches {
		full := filepath.Clean(filepath.Join(l.root, rel))
		info, err := fs.Stat(os.DirFS(l.root), rel)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return loaded, fmt.Errorf("host: failed to preload %q: %w", full, err)
		}
		l.preloaded[full] = string(data)
		loaded = append(loaded, full)
	}
	return loaded, nil
}
