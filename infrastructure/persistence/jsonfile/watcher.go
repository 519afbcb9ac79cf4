package jsonfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portfolio/domain/content"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc receives the re-read document, or the error that made it
// unreadable.
type ChangeFunc func(doc *content.Document, err error)

// Watcher reports edits made to the content file outside the server, such
// as an operator editing it by hand. Saves recorded in its WriteLog are
// not reported.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	writes   *WriteLog
	logger   *zap.Logger

	fs        *fsnotify.Watcher
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// IgnoringWrites skips changes whose contents match the last payload
// recorded in l.
func IgnoringWrites(l *WriteLog) WatcherOption {
	return func(w *Watcher) { w.writes = l }
}

// NewWatcher starts watching path. The parent directory is watched, since
// atomic saves replace the file rather than writing into it. It is created
// when missing.
func NewWatcher(path string, debounce time.Duration, logger *zap.Logger, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		fs:       fsWatcher,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch content directory: %w", err)
	}

	w.wg.Add(1)
	go w.loop()

	logger.Info("Watching content file", zap.String("path", w.path))
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
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
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("Content watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Debug("Stopping content watcher")
			return
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err == nil && w.writes.wrote(data) {
		w.logger.Debug("Content file saved by server", zap.String("path", w.path))
		return
	}

	var doc *content.Document
	if err != nil {
		err = fmt.Errorf("failed to read content file: %w", err)
	} else {
		doc, err = content.Decode(data)
	}
	if err != nil {
		w.logger.Error("Content file changed and is unreadable",
			zap.String("path", w.path),
			zap.Error(err),
		)
	} else {
		w.logger.Info("Content file changed",
			zap.String("path", w.path),
			zap.Int("items", len(doc.Tagged())),
		)
	}
	if w.onChange != nil {
		w.onChange(doc, err)
	}
}
