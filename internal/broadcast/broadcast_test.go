// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SubscribeAfterPublishMissesEarlierValues(t *testing.T) {
	b := New[int](4)
	b.Publish(1)

	sub := b.Subscribe()
	b.Publish(2)

	msg := recv(t, sub)
	assert.Equal(t, 2, msg.Value)
}

func TestBroadcaster_OrderPreservedAcrossSubscribers(t *testing.T) {
	b := New[int](16)
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	for i := 0; i < 10; i++ {
		b.Publish(i)
	}

	for i := 0; i < 10; i++ {
		m1 := recv(t, s1)
		m2 := recv(t, s2)
		require.Equal(t, i, m1.Value)
		require.Equal(t, i, m2.Value)
	}
}

func TestBroadcaster_FullBacklogMarksLagged(t *testing.T) {
	b := New[int](2)
	sub := b.Subscribe()

	for i := 0; i < 10; i++ {
		b.Publish(i)
	}

	sawLagged := false
	for i := 0; i < 3; i++ {
		m := recv(t, sub)
		if m.Lagged {
			sawLagged = true
		}
	}
	assert.True(t, sawLagged, "expected at least one lagged marker after overflowing the backlog")
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := New[int](4)
	sub := b.Subscribe()
	sub.Unsubscribe()

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestBroadcaster_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := New[int](1)
	_ = b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func recv[T any](t *testing.T, sub *Subscription[T]) Msg[T] {
	t.Helper()
	select {
	case m, ok := <-sub.C:
		require.True(t, ok, "subscription channel closed unexpectedly")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
		return Msg[T]{}
	}
}
