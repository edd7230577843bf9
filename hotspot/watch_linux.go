//go:build linux

package hotspot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch calls trigger whenever a perf-data file appears or disappears, so
// a JVM starting or exiting can be picked up before the next periodic scan.
// It returns when ctx is done.
func (p *Provider) Watch(ctx context.Context, trigger func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(p.tmpDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.tmpDir, err)
	}

	dirs, _ := filepath.Glob(filepath.Join(p.tmpDir, perfDataPrefix+"*"))
	for _, dir := range dirs {
		p.watchDir(watcher, dir)
	}

	for {
		select {
		case <-ctx.Done():
			p.log.Debugln("Stopping perf-data watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}

			parent := filepath.Dir(event.Name)
			base := filepath.Base(event.Name)

			switch {
			case parent == filepath.Clean(p.tmpDir) && strings.HasPrefix(base, perfDataPrefix):
				// new user directory, or one went away
				if event.Has(fsnotify.Create) {
					p.watchDir(watcher, event.Name)
				}
				trigger()
			case strings.HasPrefix(filepath.Base(parent), perfDataPrefix):
				p.log.Debugln("perf-data changed", event.Name, event.Op)
				trigger()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			p.log.Warn("Watcher error: ", err)
		}
	}
}

func (p *Provider) watchDir(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil {
		p.log.Debugln("Failed to watch", dir, err)
	}
}
