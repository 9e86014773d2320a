package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch starts an fsnotify watcher on the config file and hot-reloads the
// mapping tables and proxy settings on change. Editors and atomic writers
// produce bursts of events, so reloads are debounced.
func (m *Manager) Watch() {
	if m.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create config watcher; hot reload disabled")
		return
	}

	if err := watcher.Add(m.path); err != nil {
		log.WithError(err).WithField("path", m.path).Warn("failed to watch config file; hot reload disabled")
		watcher.Close()
		return
	}
	// Watch the directory too, to catch atomic writes (rename + create).
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		log.WithError(err).Warn("failed to watch config directory")
	}

	log.WithField("path", m.path).Info("config watcher started")

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		const debounceDelay = 100 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, m.reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")

			case <-m.stopCh:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}
