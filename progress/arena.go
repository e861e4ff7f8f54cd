// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"sync"

	"github.com/go-a2a/bridge"
)

// Arena is the ownership registry for the live progress logs of a
// process. A log enters the arena when its task starts and leaves only
// through an explicit Evict or CloseAll, so log lifetime is a decision of
// the owner rather than a side effect of dangling references. Sessions
// pin a log with Acquire and drop the pin with Release; the owner reads
// the remaining reference count to decide when a sealed log can go.
type Arena struct {
	mu   sync.RWMutex
	logs map[string]*arenaEntry
}

type arenaEntry struct {
	log  *Log
	refs int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		logs: make(map[string]*arenaEntry),
	}
}

// Create registers a new log for a task. It returns ErrTaskExists when
// the task already has one.
func (a *Arena) Create(taskID string) (*Log, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.logs[taskID]; ok {
		return nil, ErrTaskExists
	}

	log := NewLog(taskID)
	a.logs[taskID] = &arenaEntry{log: log}
	return log, nil
}

// GetOrCreate returns the log for a task, registering a new one if
// necessary. The second result reports whether the log was created by
// this call.
func (a *Arena) GetOrCreate(taskID string) (*Log, bool) {
	a.mu.RLock()
	entry, ok := a.logs[taskID]
	a.mu.RUnlock()

	if ok {
		return entry.log, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another goroutine may have registered it in between.
	if entry, ok = a.logs[taskID]; ok {
		return entry.log, false
	}

	log := NewLog(taskID)
	a.logs[taskID] = &arenaEntry{log: log}
	return log, true
}

// Get returns the log for a task without pinning it. It returns
// [bridge.ErrTaskNotFound] when no log is registered.
func (a *Arena) Get(taskID string) (*Log, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.logs[taskID]
	if !ok {
		return nil, bridge.ErrTaskNotFound
	}
	return entry.log, nil
}

// Acquire returns the log for a task and increments its reference count.
// Every Acquire is paired with one Release.
func (a *Arena) Acquire(taskID string) (*Log, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.logs[taskID]
	if !ok {
		return nil, bridge.ErrTaskNotFound
	}
	entry.refs++
	return entry.log, nil
}

// Release drops one reference from a task's log and returns the count
// that remains. Releasing an unknown task returns zero.
func (a *Arena) Release(taskID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.logs[taskID]
	if !ok {
		return 0
	}
	if entry.refs > 0 {
		entry.refs--
	}
	return entry.refs
}

// Refs returns the current reference count of a task's log.
func (a *Arena) Refs(taskID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.logs[taskID]
	if !ok {
		return 0
	}
	return entry.refs
}

// Evict removes a task's log from the arena. A log that is not yet
// sealed is closed first so that blocked readers wake. Evicting an
// unknown task is a no-op.
func (a *Arena) Evict(taskID string) {
	a.mu.Lock()
	entry, ok := a.logs[taskID]
	if ok {
		delete(a.logs, taskID)
	}
	a.mu.Unlock()

	if ok {
		entry.log.Close()
	}
}

// Len returns the number of registered logs.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.logs)
}

// TaskIDs returns the task ids of all registered logs.
func (a *Arena) TaskIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.logs))
	for id := range a.logs {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every registered log and empties the arena.
func (a *Arena) CloseAll() {
	a.mu.Lock()
	entries := make([]*arenaEntry, 0, len(a.logs))
	for id, entry := range a.logs {
		entries = append(entries, entry)
		delete(a.logs, id)
	}
	a.mu.Unlock()

	for _, entry := range entries {
		entry.log.Close()
	}
}
