/*
© 2026–present Northrend Labs
ISC License
*/

package pconf

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
)

// Watch reloads path on every write/create event and invokes onChange
// with the new SpawnDefaults, until ctx is cancelled. Parse failures on
// reload are logged and otherwise ignored: the previously loaded
// SpawnDefaults keeps governing new spawns rather than being replaced
// by a zero value
func Watch(ctx context.Context, path string, onChange func(*SpawnDefaults)) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return perrs.Errorf("pconf watch: %w", err)
	}
	if err = watcher.Add(path); err != nil {
		watcher.Close()
		return perrs.Errorf("pconf watch: %w", err)
	}

	go watchLoop(ctx, watcher, path, onChange)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func(*SpawnDefaults)) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, more := <-watcher.Events:
			if !more {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			defaults, loadErr := Load(path)
			if loadErr != nil {
				plog.Debug("pconf watch: reload %s failed: %s", path, perrs.Short(loadErr))
				continue
			}
			onChange(defaults)
		case watchErr, more := <-watcher.Errors:
			if !more {
				return
			}
			plog.Debug("pconf watch: %s", perrs.Short(watchErr))
		}
	}
}
