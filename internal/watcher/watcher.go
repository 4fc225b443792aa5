// Package watcher watches graph files and reports content changes with
// debouncing.
package watcher

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"lukechampine.com/blake3"

	"github.com/zjrosen/canvasflow/internal/log"
)

// Change is a graph file whose content differs from the last one seen.
type Change struct {
	Path string
	Hash string // hex blake3 of Data
	Data []byte
}

// Watcher monitors graph files and sends a Change for each file whose
// content changed once writes settle.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	single    bool // root is a file rather than a directory
	pattern   string
	debounce  time.Duration
	changes   chan Change
	done      chan struct{}

	mu     sync.Mutex
	hashes map[string]string // last seen content hash per path
}

// Config holds watcher configuration options.
type Config struct {
	// Root is a graph file or a directory searched recursively.
	Root string
	// Pattern filters files under a directory root, relative to it, in
	// doublestar syntax. Ignored when Root is a file.
	Pattern     string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		Pattern:     "**/*.json",
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a new graph watcher.
func New(cfg Config) (*Watcher, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "**/*.json"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		root = cfg.Root
	}
	return &Watcher{
		fsWatcher: fsw,
		root:      root,
		single:    !info.IsDir(),
		pattern:   pattern,
		debounce:  cfg.DebounceDur,
		hashes:    make(map[string]string),
		changes:   make(chan Change, 16),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Files present now are hashed so that saving them
// unchanged does not report a Change.
func (w *Watcher) Start() (<-chan Change, error) {
	if w.single {
		// Watch the directory; editors often replace the file on save.
		dir := filepath.Dir(w.root)
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
		w.prime(w.root)
	} else {
		err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.fsWatcher.Add(path)
			}
			if w.matches(path) {
				w.prime(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", w.root, err)
		}
	}

	go w.loop()

	return w.changes, nil
}

// Files returns the graph files currently known to the watcher, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.hashes))
	for p := range w.hashes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var timer *time.Timer
	pending := make(map[string]struct{})

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) && !w.single {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsWatcher.Add(event.Name)
					continue
				}
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			for _, p := range paths {
				change, ok := w.check(p)
				if !ok {
					continue
				}
				select {
				case w.changes <- change:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "watch error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// check reads path and reports a Change if its content hash is new.
func (w *Watcher) check(path string) (Change, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Removed or renamed away before the debounce fired.
		log.Debug(log.CatWatcher, "skipping unreadable file", "path", path, "error", err)
		return Change{}, false
	}
	hash := hashOf(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hashes[path] == hash {
		log.Debug(log.CatWatcher, "content unchanged", "path", path)
		return Change{}, false
	}
	w.hashes[path] = hash
	return Change{Path: path, Hash: hash, Data: data}, true
}

func (w *Watcher) prime(path string) {
	if data, err := os.ReadFile(path); err == nil {
		w.mu.Lock()
		w.hashes[path] = hashOf(data)
		w.mu.Unlock()
	}
}

// isRelevantEvent checks if the event should trigger a re-run.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return w.matches(event.Name)
}

func (w *Watcher) matches(path string) bool {
	if w.single {
		return filepath.Clean(path) == w.root
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func hashOf(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
