// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/go-a2a/bridge/progress"
)

// Relay delivers progress events by signaling the workflow whose id is
// the event's task id. The executor never learns which worker hosts the
// journal; Temporal resolves the indirection, which is what keeps
// delivery working across workflow relocation and retry.
type Relay struct {
	client client.Client
}

var _ progress.Relay = (*Relay)(nil)

// NewRelay creates a relay over a Temporal client.
func NewRelay(c client.Client) *Relay {
	return &Relay{client: c}
}

// Deliver signals the task's workflow with the event. Delivery is
// at-least-once; the journal drops re-delivered sequence numbers.
func (r *Relay) Deliver(ctx context.Context, event progress.Event) error {
	if err := r.client.SignalWorkflow(ctx, event.TaskID, "", SignalProgressReport, event); err != nil {
		return fmt.Errorf("signal workflow %s: %w", event.TaskID, err)
	}
	return nil
}
