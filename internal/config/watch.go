package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch watches path for on-disk edits and invokes onChange whenever a write
// is observed. The running server never hot-applies the new values — this
// only surfaces that a restart would pick them up, since single-owner
// World/roster/queue state can't safely be swapped out mid-tick. The watcher
// goroutine exits (after logging once) on any fsnotify error.
func Watch(path string, onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.Printf("config: %s changed on disk, restart to apply", path)
					if onChange != nil {
						onChange()
					}
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch error: %v", werr)
				return
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
