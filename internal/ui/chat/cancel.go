// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// cancelManager holds the cancel function of the answer being streamed.
// It must be used through a pointer so that Bubble Tea's model copies share
// one mutex.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	cancelled  bool
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores the cancel function for a new answer.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
	cm.cancelled = false
}

// cancel cancels the current answer, if any, and reports whether there was
// one. Safe to call multiple times.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	cm.cancelled = true
	return true
}

// clear releases the context of a finished answer and reports whether the
// user cancelled it.
func (cm *cancelManager) clear() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc() // Always cancel to prevent context leaks
		cm.cancelFunc = nil
	}
	was := cm.cancelled
	cm.cancelled = false
	return was
}
