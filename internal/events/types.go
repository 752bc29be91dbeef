// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events publishes session lifecycle notifications. It is a thin
// publish-only wrapper around a broadcaster: no pattern subscriptions, no
// history querying, since no component needs either.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened to a session.
type Kind string

const (
	SessionCreated Kind = "session.created"
	SessionStopped Kind = "session.stopped"
	SessionErrored Kind = "session.errored"
)

// Event is one lifecycle notification.
type Event struct {
	Kind      Kind      `json:"kind"`
	SessionID uuid.UUID `json:"session_id"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}
