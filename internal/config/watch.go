// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// RequestTimeout returns api.request_timeout_secs as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSecs) * time.Second
}

// IdleTimeout returns api.stream_idle_timeout_secs as a duration; zero
// means disabled.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.API.StreamIdleTimeoutSecs) * time.Second
}

// Watch reloads the settings in dir whenever settings.toml changes and
// passes the result to fn. A reload that fails calls fn with the error;
// the caller keeps its previous settings. Watching stops when ctx is done.
//
// The directory is watched rather than the file so that editors that save
// by rename are picked up.
func Watch(ctx context.Context, dir string, debounce time.Duration, fn func(*Config, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != FileName {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					pending = time.After(debounce)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fn(nil, fmt.Errorf("settings watcher: %w", err))

			case <-pending:
				pending = nil
				fn(Load(dir))
			}
		}
	}()

	return nil
}
