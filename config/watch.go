package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Swind/go-job-system/core"
)

const watchDebounce = 250 * time.Millisecond

// Watch re-loads path whenever it changes on disk and passes every valid,
// changed configuration to apply. Invalid files are logged and skipped; the
// previous configuration stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file itself so editors that
// replace the file on save keep working.
func Watch(ctx context.Context, path string, logger core.Logger, apply func(Config)) error {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config watch %s: %w", dir, err)
	}

	var (
		mu       sync.Mutex
		timer    *time.Timer
		lastJSON []byte
	)
	if cfg, err := Load(path); err == nil {
		lastJSON, _ = json.Marshal(cfg)
	}

	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("config.reload_failed", core.F("path", path), core.F("err", err))
			return
		}
		b, _ := json.Marshal(cfg)

		mu.Lock()
		unchanged := bytes.Equal(b, lastJSON)
		if !unchanged {
			lastJSON = b
		}
		mu.Unlock()
		if unchanged {
			logger.Debug("config.unchanged", core.F("path", path))
			return
		}

		logger.Info("config.reloaded", core.F("path", path))
		apply(cfg)
	}

	// debounce to avoid partial writes
	debounce := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	logger.Debug("config.watch_started", core.F("dir", dir), core.F("file", file))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("config watch %s: event channel closed", dir)
			}
			// Compare by basename (more robust across absolute/relative paths)
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("config watch %s: error channel closed", dir)
			}
			if err != nil {
				logger.Warn("config.watch_error", core.F("dir", dir), core.F("err", err))
			}
		}
	}
}
