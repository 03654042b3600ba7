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

	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobReserveRespectsCapacity(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})

	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))
	require.NoError(t, j.Reserve("p2", time.Hour, func() {}))

	err := j.Reserve("p3", time.Hour, func() {})
	assert.ErrorIs(t, err, dispatcherrors.ErrSeatUnavailable)
	assert.Equal(t, 0, j.AvailableSeats())
}

func TestJobReserveFailsWhenClosed(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	j.close()

	err := j.Reserve("p1", time.Hour, func() {})
	assert.ErrorIs(t, err, dispatcherrors.ErrSeatUnavailable)
}

func TestJobJoinConvertsReservationToOccupant(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))

	require.NoError(t, j.Join("p1"))
	assert.Equal(t, 1, j.Occupancy())
	assert.Equal(t, 0, j.ReservationCount())
}

func TestJobJoinWithoutReservationFails(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	err := j.Join("ghost")
	assert.ErrorIs(t, err, dispatcherrors.ErrNoMatch)
}

func TestJobExpireReservationIsIdempotent(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))

	assert.True(t, j.ExpireReservation("p1"))
	assert.False(t, j.ExpireReservation("p1"))
}

func TestJobReservationExpiresViaTimer(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 1, nil, func() {})
	expired := make(chan struct{})

	require.NoError(t, j.Reserve("p1", 20*time.Millisecond, func() {
		j.ExpireReservation("p1")
		close(expired)
	}))

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("reservation did not expire")
	}
	assert.Equal(t, 1, j.AvailableSeats())
}

func TestJobLeaveRemovesOccupant(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 1, nil, func() {})
	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))
	require.NoError(t, j.Join("p1"))

	assert.True(t, j.Leave("p1"))
	assert.False(t, j.Leave("p1"))
	assert.Equal(t, 1, j.AvailableSeats())
}

func TestJobObserverNotifiedOnMutation(t *testing.T) {
	t.Parallel()
	j := newJob("room-1", 2, nil, func() {})
	calls := 0
	j.addObserver(func() { calls++ })

	require.NoError(t, j.Reserve("p1", time.Hour, func() {}))
	require.NoError(t, j.Join("p1"))
	assert.True(t, j.Leave("p1"))

	assert.Equal(t, 3, calls)
}
