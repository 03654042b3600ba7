// SPDX-License-Identifier: AGPL-3.0-or-later
// loadfabric - a distributed load-balanced request dispatch fabric
// Copyright (C) 2026
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package scheduler

import (
	"testing"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachRoomFullAutoEmitFiresOnceAtCapacity(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	j := newJob("room-1", 1, nil, func() {})
	cancel := attachRoomFullAutoEmit(j, bus)
	defer cancel()

	events, unsub := bus.Subscribe(RoomFullEventID, "", 0)
	defer unsub()

	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))

	select {
	case ev := <-events:
		assert.Equal(t, RoomFullEventID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected ROOM_FULL event")
	}
}

func TestAttachAutoDestroyOnIdleDestroysAfterTwoIdleObservations(t *testing.T) {
	t.Parallel()
	ended := make(chan struct{})
	j := newJob("room-1", 1, nil, func() { close(ended) })
	cancel := attachAutoDestroyOnIdle(j, 15*time.Millisecond)
	defer cancel()

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("expected job to be auto-destroyed while idle")
	}
	assert.False(t, j.IsOpen())
}

func TestAttachAutoDestroyOnIdleSkipsWhileOccupied(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))
	cancel := attachAutoDestroyOnIdle(j, 15*time.Millisecond)
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, j.IsOpen())
}
