// Package watch reports screenshots created in a folder while a run is live.
//
// Only Create events whose base name passes screenshot.IsCandidate reach the
// handler. Stop closes the underlying fsnotify watcher and returns once the
// event loop has exited, so no handler call starts after Stop returns.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"shotsort/internal/logging"
	"shotsort/internal/screenshot"
)

// Handler receives the absolute path of a newly created screenshot.
type Handler func(path string)

// Watcher follows one directory.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	handle   Handler
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start begins watching dir. handle runs on the watcher goroutine and should
// return quickly.
func Start(dir string, handle Handler, logger *slog.Logger) (*Watcher, error) {
	if handle == nil {
		return nil, fmt.Errorf("watch %s: handler required", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(absDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", absDir, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		dir:    absDir,
		fsw:    fsw,
		handle: handle,
		logger: logging.NewComponentLogger(logger, "watch"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	w.logger.Info("watching folder", logging.String("dir", absDir))
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Stop ends the watch. It is safe to call more than once.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.fsw.Close()
		<-w.done
		w.logger.Info("stopped watching folder", logging.String("dir", w.dir))
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !evt.Has(fsnotify.Create) {
				continue
			}
			if !screenshot.IsCandidate(filepath.Base(evt.Name)) {
				continue
			}
			select {
			case <-w.stop:
				return
			default:
			}
			w.handle(evt.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
			)
		}
	}
}
