package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/watcher"
)

func startWatcher(t *testing.T, cfg watcher.Config) (*watcher.Watcher, <-chan watcher.Change) {
	t.Helper()
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })
	changes, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return w, changes
}

func expectChange(t *testing.T, changes <-chan watcher.Change) watcher.Change {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected change but got timeout")
		return watcher.Change{}
	}
}

func expectQuiet(t *testing.T, changes <-chan watcher.Change) {
	t.Helper()
	select {
	case c := <-changes:
		t.Fatalf("unexpected change for %s", c.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(`{}`), 0o644))

	_, changes := startWatcher(t, watcher.Config{Root: graphPath, DebounceDur: 50 * time.Millisecond})

	// Rapid writes should coalesce into a single change
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(graphPath, []byte(fmt.Sprintf(`{"v":%d}`, i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	c := expectChange(t, changes)
	assert.Equal(t, `{"v":9}`, string(c.Data))
	assert.Len(t, c.Hash, 64)
	expectQuiet(t, changes)
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(`{"nodes":[]}`), 0o644))

	_, changes := startWatcher(t, watcher.Config{Root: graphPath, DebounceDur: 30 * time.Millisecond})

	// Saving identical bytes is not a change
	require.NoError(t, os.WriteFile(graphPath, []byte(`{"nodes":[]}`), 0o644))
	expectQuiet(t, changes)

	require.NoError(t, os.WriteFile(graphPath, []byte(`{"nodes":[1]}`), 0o644))
	first := expectChange(t, changes)

	require.NoError(t, os.WriteFile(graphPath, []byte(`{"nodes":[1]}`), 0o644))
	expectQuiet(t, changes)

	require.NoError(t, os.WriteFile(graphPath, []byte(`{"nodes":[]}`), 0o644))
	second := expectChange(t, changes)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestWatcher_IgnoresOtherFilesNextToSingleGraph(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "flow.json")
	otherPath := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(otherPath, []byte(`{}`), 0o644))

	_, changes := startWatcher(t, watcher.Config{Root: graphPath, DebounceDur: 30 * time.Millisecond})

	require.NoError(t, os.WriteFile(otherPath, []byte(`{"x":1}`), 0o644))
	expectQuiet(t, changes)
}

func TestWatcher_DirectoryPattern(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "flows", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	keep := filepath.Join(sub, "a.canvas.json")
	skip := filepath.Join(sub, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(skip, []byte("x"), 0o644))

	w, changes := startWatcher(t, watcher.Config{
		Root:        dir,
		Pattern:     "flows/**/*.canvas.json",
		DebounceDur: 30 * time.Millisecond,
	})
	abs, err := filepath.Abs(keep)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, w.Files())

	require.NoError(t, os.WriteFile(skip, []byte("y"), 0o644))
	expectQuiet(t, changes)

	require.NoError(t, os.WriteFile(keep, []byte(`{"nodes":[]}`), 0o644))
	c := expectChange(t, changes)
	assert.Equal(t, abs, c.Path)
}

func TestWatcher_NewFileInDirectory(t *testing.T) {
	dir := t.TempDir()

	_, changes := startWatcher(t, watcher.Config{Root: dir, DebounceDur: 30 * time.Millisecond})

	path := filepath.Join(dir, "fresh.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":[]}`), 0o644))

	c := expectChange(t, changes)
	assert.Equal(t, `{"nodes":[]}`, string(c.Data))
}

func TestNew_Errors(t *testing.T) {
	_, err := watcher.New(watcher.Config{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	_, err = watcher.New(watcher.Config{Root: t.TempDir(), Pattern: "[unclosed"})
	require.ErrorContains(t, err, "invalid watch pattern")
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("flows")
	assert.Equal(t, "flows", cfg.Root)
	assert.Equal(t, "**/*.json", cfg.Pattern)
	assert.Positive(t, cfg.DebounceDur)
}
