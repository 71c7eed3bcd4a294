// Package watcher re-runs snapshot imports when their source files change.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before onChange runs
const DefaultDebounce = 500 * time.Millisecond

// Source is a file imported into a snapshot key
type Source struct {
	Path string
	Key  string
}

// Watcher watches snapshot source files for changes
type Watcher struct {
	sources  map[string]Source // by absolute path
	onChange func(Source)
	debounce time.Duration
	ready    chan struct{}
}

// New creates a watcher that calls onChange for each source whose file is
// written or recreated. Callbacks run one at a time on the Watch goroutine.
func New(onChange func(Source), sources ...Source) (*Watcher, error) {
	w := &Watcher{
		sources:  make(map[string]Source, len(sources)),
		onChange: onChange,
		debounce: DefaultDebounce,
		ready:    make(chan struct{}),
	}
	for _, src := range sources {
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", src.Path, err)
		}
		src.Path = abs
		w.sources[abs] = src
	}
	if len(w.sources) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	return w, nil
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Ready is closed once every source directory is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch blocks until the context is cancelled or the watcher fails
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	// Watch directories rather than files so editors that replace the file
	// on save are still seen
	dirs := make(map[string]bool)
	for path := range w.sources {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
		log.Printf("watcher: watching %s", dir)
	}
	close(w.ready)

	timers := make(map[string]*time.Timer)
	fired := make(chan string)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.sources[path]; !watched {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fired <- path:
				case <-ctx.Done():
				}
			})

		case path := <-fired:
			delete(timers, path)
			log.Printf("watcher: %s changed", path)
			w.onChange(w.sources[path])

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
