// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/tonyjom/lineforge/internal/broadcast"
)

// Bus fans session lifecycle events out to any number of subscribers.
// Publish never blocks a caller on a slow subscriber.
type Bus struct {
	b *broadcast.Broadcaster[Event]
}

// NewBus creates an event bus with the given per-subscriber backlog.
func NewBus(backlog int) *Bus {
	return &Bus{b: broadcast.New[Event](backlog)}
}

// Publish emits an event to every current subscriber.
func (bus *Bus) Publish(kind Kind, sessionID uuid.UUID, detail string) {
	bus.b.Publish(Event{
		Kind:      kind,
		SessionID: sessionID,
		At:        time.Now().UTC(),
		Detail:    detail,
	})
}

// Subscribe registers a new receiver for events published from this point
// on.
func (bus *Bus) Subscribe() *broadcast.Subscription[Event] {
	return bus.b.Subscribe()
}

// Close shuts the bus down, closing every live subscription channel.
func (bus *Bus) Close() {
	bus.b.Close()
}
