// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tonyjom/lineforge/internal/watcher"
)

// WatchForChanges watches path for writes and logs a notice, debounced so
// an editor's multi-step save doesn't produce a flurry of log lines. This
// is detection-only: lineforge does not hot-reload configuration, since
// most fields (bind address, tool path, log retention) only make sense to
// apply at startup.
func WatchForChanges(path string, stop <-chan struct{}) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("config: could not start file watcher: %v", err)
		return
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		log.Printf("config: could not watch %s: %v", path, err)
		return
	}

	debouncer := watcher.NewDebouncer(500 * time.Millisecond)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				debouncer.Debounce(path, func() {
					log.Printf("config: %s changed; restart to apply", path)
				})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		case <-stop:
			return
		}
	}
}
