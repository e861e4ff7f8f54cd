// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-a2a/bridge"
)

func TestLog_ReadAndWait(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")
	if err := log.Append(workingEvent("t1", 1, 0.1)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, sealed := log.Read(0)
	if len(events) != 1 || sealed {
		t.Fatalf("Read(0) = %d events, sealed=%v, want 1 event, unsealed", len(events), sealed)
	}

	got, err := log.Wait(t.Context(), 0)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Wait() returned %d events, want 1", len(got))
	}
}

func TestLog_WaitBlocksUntilAppend(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")

	var wg sync.WaitGroup
	wg.Add(1)
	var waited []Event
	var waitErr error
	go func() {
		defer wg.Done()
		waited, waitErr = log.Wait(t.Context(), 0)
	}()

	// Give the reader a moment to block before the append lands.
	time.Sleep(10 * time.Millisecond)
	if err := log.Append(workingEvent("t1", 1, 0.3)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	wg.Wait()
	if waitErr != nil {
		t.Fatalf("Wait() error = %v", waitErr)
	}
	if len(waited) != 1 || waited[0].Seq != 1 {
		t.Fatalf("Wait() = %+v, want the appended event", waited)
	}
}

func TestLog_WaitDrainedSealedReturnsErrLogSealed(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")
	if err := log.Append(completedEvent("t1", 1)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// The terminal event is still readable past cursor 0.
	events, err := log.Wait(t.Context(), 0)
	if err != nil {
		t.Fatalf("Wait(0) error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Wait(0) returned %d events, want 1", len(events))
	}

	// Past the end of a sealed log the wait reports the seal.
	if _, err := log.Wait(t.Context(), 1); !errors.Is(err, ErrLogSealed) {
		t.Errorf("Wait(1) error = %v, want %v", err, ErrLogSealed)
	}
}

func TestLog_CloseWakesWaiters(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")

	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		_, waitErr = log.Wait(t.Context(), 0)
	}()

	time.Sleep(10 * time.Millisecond)
	log.Close()
	wg.Wait()

	if !errors.Is(waitErr, ErrLogSealed) {
		t.Errorf("Wait() error after Close = %v, want %v", waitErr, ErrLogSealed)
	}
	if _, ok := log.Terminal(); ok {
		t.Error("Terminal() found a terminal event after anomalous close")
	}
}

func TestLog_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := log.Wait(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestLog_ConcurrentReadersSeeAppendOrder(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")
	const readers = 4
	const total = 20

	var wg sync.WaitGroup
	results := make([][]Event, readers)
	for i := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var seen []Event
			cursor := 0
			for {
				events, err := log.Wait(t.Context(), cursor)
				if errors.Is(err, ErrLogSealed) {
					results[i] = seen
					return
				}
				if err != nil {
					t.Errorf("Wait() error = %v", err)
					return
				}
				seen = append(seen, events...)
				cursor += len(events)
			}
		}()
	}

	for seq := uint64(1); seq < total; seq++ {
		if err := log.Append(workingEvent("t1", seq, float64(seq)/total)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := log.Append(completedEvent("t1", total)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wg.Wait()

	for i, seen := range results {
		if len(seen) != total {
			t.Fatalf("reader %d saw %d events, want %d", i, len(seen), total)
		}
		for j, event := range seen {
			if event.Seq != uint64(j+1) {
				t.Fatalf("reader %d position %d has seq %d, want %d", i, j, event.Seq, j+1)
			}
		}
	}
}

func TestLog_DuplicateAppendDoesNotWakeNewData(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")
	if err := log.Append(workingEvent("t1", 1, 0.2)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := log.Append(workingEvent("t1", 1, 0.2)); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("Append() error = %v, want %v", err, ErrDuplicateEvent)
	}

	if log.Len() != 1 {
		t.Errorf("Len() = %d, want 1", log.Len())
	}
	if got := log.NextSeq(); got != 2 {
		t.Errorf("NextSeq() = %d, want 2", got)
	}
}

func TestLog_SnapshotMatchesState(t *testing.T) {
	t.Parallel()

	log := NewLog("t1")
	if err := log.Append(workingEvent("t1", 1, 0.4)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	snapshot := log.Snapshot()
	if snapshot.Status.State != bridge.TaskStateWorking {
		t.Errorf("snapshot state = %q, want %q", snapshot.Status.State, bridge.TaskStateWorking)
	}
	if snapshot.Progress != 0.4 {
		t.Errorf("snapshot progress = %v, want 0.4", snapshot.Progress)
	}
	if snapshot.Sealed {
		t.Error("snapshot sealed before terminal event")
	}
}
