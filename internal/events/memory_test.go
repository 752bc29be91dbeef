// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	sub := bus.Subscribe()
	id := uuid.New()
	bus.Publish(SessionCreated, id, "")

	select {
	case msg := <-sub.C:
		require.False(t, msg.Lagged)
		assert.Equal(t, SessionCreated, msg.Value.Kind)
		assert.Equal(t, id, msg.Value.SessionID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_SubscribersAreIndependent(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()
	a.Unsubscribe()

	bus.Publish(SessionStopped, uuid.New(), "exited")

	select {
	case msg := <-b.C:
		assert.Equal(t, SessionStopped, msg.Value.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event on live subscriber")
	}
}
