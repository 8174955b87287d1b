package board

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Logger is the logging interface used by Watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Watcher reloads a board file when it changes on disk and hands each
// successfully decoded board to onChange. Decode failures are logged and
// the previous board stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Board)
	logger   Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher watches path. The parent directory is watched so that
// editors replacing the file via rename are still seen.
func NewWatcher(path string, debounce time.Duration, onChange func(*Board)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("board: resolving %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("board: creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("board: watching %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   noopLogger{},
		watcher:  fw,
	}, nil
}

// SetLogger sets the logger. Call before Run.
func (w *Watcher) SetLogger(l Logger) {
	if l != nil {
		w.logger = l
	}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info("watching board file", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				w.logger.Debug("board file changed", "op", ev.Op.String())
				timer.Reset(w.debounce)
			case ev.Has(fsnotify.Remove):
				w.logger.Warn("board file removed", "path", w.path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("board watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	b, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("board reload failed, keeping previous layout", "path", w.path, "error", err)
		return
	}
	w.logger.Info("board reloaded", "path", w.path, "electrodes", b.Layout.ElectrodeCount())
	if w.onChange != nil {
		w.onChange(b)
	}
}
