package db

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher calls onChange when the document file is changed on disk.
// The parent directory is watched since writes replace the file by rename.
type Watcher struct {
	fw       *fsnotify.Watcher
	name     string
	onChange func()
	debounce time.Duration
	log      *logrus.Entry
}

// NewWatcher watches path. Events are coalesced over a short debounce window.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		fw:       fw,
		name:     filepath.Base(abs),
		onChange: onChange,
		debounce: 100 * time.Millisecond,
		log:      logrus.WithField("component", "watcher"),
	}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}
		case <-timerC:
			timer, timerC = nil, nil
			w.log.Debug("document changed on disk, invalidating cache")
			w.onChange()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("file watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
