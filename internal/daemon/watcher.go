package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
	stdsync "sync"

	"github.com/fsnotify/fsnotify"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// CollectionEvent reports that a collection file changed on disk outside
// this process, typically another instance sharing the same data directory.
type CollectionEvent struct {
	// Collection is the roster collection whose file changed.
	Collection schema.Collection
	// Path is the absolute path of the changed file.
	Path string
}

// FileWatcher watches the JSON data directory for external writes to the
// collection files. It uses fsnotify for cross-platform event monitoring.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan CollectionEvent
	errors  chan error
	done    chan struct{}
	wg      stdsync.WaitGroup
	mu      stdsync.Mutex
	running bool
	dataDir string
}

// NewFileWatcher creates a watcher. Start it before reading Events.
func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher: watcher,
		events:  make(chan CollectionEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching dataDir for collection file changes.
func (fw *FileWatcher) Start(dataDir string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}
	fw.dataDir = dataDir

	if err := fw.watcher.Add(dataDir); err != nil {
		return fmt.Errorf("watch data directory %s: %w", dataDir, err)
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.done)
	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	fw.wg.Wait()

	close(fw.events)
	close(fw.errors)
	return nil
}

// Events returns the channel of collection change notifications. Closed when
// the watcher stops.
func (fw *FileWatcher) Events() <-chan CollectionEvent {
	return fw.events
}

// Errors returns the channel of watcher errors. Closed when the watcher
// stops.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// IsRunning reports whether the watcher is active.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if ce, ok := fw.convertEvent(event); ok {
				select {
				case fw.events <- ce:
				case <-fw.done:
					return
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event onto a collection. Writes land as
// tmp-then-rename, so Create and Rename matter as much as Write.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) (CollectionEvent, bool) {
	if !strings.HasSuffix(event.Name, ".json") {
		return CollectionEvent{}, false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return CollectionEvent{}, false
	}

	name := strings.TrimSuffix(filepath.Base(event.Name), ".json")
	for _, col := range schema.Collections {
		if name == string(col) {
			return CollectionEvent{Collection: col, Path: event.Name}, true
		}
	}
	return CollectionEvent{}, false
}
