package config

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFile reloads path via onChange whenever it's written, adapted from
// internal/license.Manager's StartWatcher: fsnotify is primary; only when a
// watcher cannot be created or cannot watch path does a 60s poll take its
// place, calling onChange on every tick. The two never run together.
func WatchFile(ctx context.Context, path string, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("config watcher: fsnotify unavailable (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(path); err != nil {
		log.Printf("config watcher: cannot watch %s (%v), falling back to polling", path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
						time.Sleep(100 * time.Millisecond)
						onChange()
					}
				case werr, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("config watcher error: %v", werr)
				}
			}
		}()
		return
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				onChange()
			}
		}
	}()
}
