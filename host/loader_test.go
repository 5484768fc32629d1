package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFSModuleLoaderResolveRelativeToReferrer(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "util.js"), "export const x = 1;")
	writeFile(t, filepath.Join(root, "main.js"), "import './lib/util.js';")

	loader := NewFSModuleLoader(root)
	source, resolved, err := loader.Resolve("./lib/util.js", filepath.Join(root, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "export const x = 1;", source)
	assert.Equal(t, filepath.Clean(filepath.Join(root, "lib", "util.js")), resolved)
}

func TestFSModuleLoaderResolveEntryModuleAgainstRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "entry.js"), "console.log(1);")

	loader := NewFSModuleLoader(root)
	source, resolved, err := loader.Resolve("./entry.js", "")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1);", source)
	assert.Equal(t, filepath.Clean(filepath.Join(root, "entry.js")), resolved)
}

func TestFSModuleLoaderResolveMissingFile(t *testing.T) {
	root := t.TempDir()
	loader := NewFSModuleLoader(root)
	_, _, err := loader.Resolve("./missing.js", "")
	assert.Error(t, err)
}

func TestFSModuleLoaderPreloadGlobAndServeFromMemory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "a.js"), "export const a = 1;")
	writeFile(t, filepath.Join(root, "lib", "nested", "b.js"), "export const b = 2;")

	loader := NewFSModuleLoader(root)
	loaded, err := loader.Preload("lib/**/*.js")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	source, _, err := loader.Resolve("./lib/a.js", filepath.Join(root, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1;", source)
}
