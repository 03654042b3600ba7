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

package echo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/workload"
	"github.com/USA-RedDragon/loadfabric/internal/workload/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name    string
	ended   bool
	joined  []string
	left    []string
	noMatch map[string]bool
}

func (f *fakeHandle) Name() string { return f.name }
func (f *fakeHandle) End()         { f.ended = true }

func (f *fakeHandle) Join(playerID string) error {
	if f.noMatch[playerID] {
		return fmt.Errorf("no reservation for %s", playerID)
	}
	f.joined = append(f.joined, playerID)
	return nil
}

func (f *fakeHandle) Leave(playerID string) bool {
	f.left = append(f.left, playerID)
	return true
}

func TestClassSeatBounds(t *testing.T) {
	t.Parallel()
	var class echo.Class
	assert.Equal(t, 1, class.DefaultSeatCount())
	assert.Equal(t, 1, class.MinSeatCount())
	assert.Equal(t, 4, class.MaxSeatCount())
}

func TestNewSatisfiesConstructorContract(t *testing.T) {
	t.Parallel()
	var ctor workload.Constructor = echo.New
	handle := &fakeHandle{name: "room-1"}
	w := ctor(handle, nil)
	require.NotNil(t, w)
}

func TestHandleEchoesPayloadUnchanged(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil).(*echo.Workload)

	out, err := w.Handle(context.Background(), map[string]interface{}{"greeting": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"greeting": "hi"}, out)
}

func TestTerminateEndsHandleAndResolves(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil)

	select {
	case <-w.Terminate(context.Background()):
	case <-time.After(time.Second):
		t.Fatal("terminate did not resolve")
	}
	assert.True(t, handle.ended)
}

func TestTerminateIsIdempotent(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil)

	ch1 := w.Terminate(context.Background())
	ch2 := w.Terminate(context.Background())

	<-ch1
	<-ch2
	assert.True(t, handle.ended)
}

func TestHandleJoinsSendingPlayerOnce(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil).(*echo.Workload)

	_, err := w.Handle(context.Background(), map[string]interface{}{"player_id": "p1"})
	require.NoError(t, err)
	_, err = w.Handle(context.Background(), map[string]interface{}{"player_id": "p1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, handle.joined)
}

func TestTerminateLeavesEveryJoinedPlayer(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil).(*echo.Workload)

	_, err := w.Handle(context.Background(), map[string]interface{}{"player_id": "p1"})
	require.NoError(t, err)

	<-w.Terminate(context.Background())
	assert.Equal(t, []string{"p1"}, handle.left)
	assert.True(t, handle.ended)
}

func TestHandleWithoutPlayerIDDoesNotJoin(t *testing.T) {
	t.Parallel()
	handle := &fakeHandle{name: "room-1"}
	w := echo.New(handle, nil).(*echo.Workload)

	_, err := w.Handle(context.Background(), "not a map")
	require.NoError(t, err)
	assert.Empty(t, handle.joined)
}
