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

package rpcnode_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/USA-RedDragon/loadfabric/internal/pubsub"
	"github.com/USA-RedDragon/loadfabric/internal/rpcnode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSharedPubSub(t *testing.T) pubsub.PubSub {
	t.Helper()
	ps, err := pubsub.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestCallRoutesToPeerHandler(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	nodeB.SetHandler(func(_ context.Context, payload interface{}) (interface{}, error) {
		m, _ := payload.(map[string]interface{})
		return map[string]interface{}{"echo": m["request"]}, nil
	})

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	result, err := nodeA.Call(context.Background(), "nodeB", map[string]interface{}{"request": "req-2"}, time.Second)
	require.NoError(t, err)

	m, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "req-2", m["echo"])
}

func TestCallToVanishedPeerReturnsNoSuchPeer(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	_, err := nodeA.Call(context.Background(), "ghost", map[string]interface{}{"a": 1}, time.Second)
	assert.ErrorIs(t, err, dispatcherrors.ErrNoSuchPeer)
}

func TestCallTimesOutWhenPeerNeverResponds(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	// nodeB is subscribed (so the delivery count is non-zero), but its
	// handler blocks past the caller's timeout, so no response arrives
	// in time. Without any handler nodeB would answer at once with an
	// error envelope, which would not exercise the timeout path.
	block := make(chan struct{})
	nodeB.SetHandler(func(_ context.Context, _ interface{}) (interface{}, error) {
		<-block
		return nil, nil
	})
	defer close(block)

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	_, err := nodeA.Call(context.Background(), "nodeB", map[string]interface{}{}, 50*time.Millisecond)
	assert.ErrorIs(t, err, dispatcherrors.ErrCallTimeout)
}

func TestCallSurfacesHandlerError(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	nodeB.SetHandler(func(_ context.Context, _ interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	_, err := nodeA.Call(context.Background(), "nodeB", map[string]interface{}{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLateResponseAfterTimeoutIsDropped(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	release := make(chan struct{})
	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	nodeB.SetHandler(func(_ context.Context, _ interface{}) (interface{}, error) {
		<-release
		return map[string]interface{}{"late": true}, nil
	})

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	_, err := nodeA.Call(context.Background(), "nodeB", map[string]interface{}{}, 20*time.Millisecond)
	assert.ErrorIs(t, err, dispatcherrors.ErrCallTimeout)

	close(release)
	// Give the late response time to arrive and be dropped; nothing
	// should panic or block since no pending entry remains for it.
	time.Sleep(50 * time.Millisecond)
}

func TestConcurrentCorrelationIDsAreNotConfused(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	nodeB.SetHandler(func(_ context.Context, payload interface{}) (interface{}, error) {
		m := payload.(map[string]interface{})
		return m, nil
	})

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	const n = 20
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			res, err := nodeA.Call(context.Background(), "nodeB", map[string]interface{}{"n": float64(i)}, time.Second)
			if err != nil {
				results <- err
				return
			}
			m := res.(map[string]interface{})
			if m["n"] != float64(i) {
				results <- errors.New("correlation mismatch")
				return
			}
			results <- nil
		}()
	}
	for i := 0; i < n; i++ {
		assert.NoError(t, <-results)
	}
}

func TestCodecRoundTripsUndefinedMarker(t *testing.T) {
	t.Parallel()
	ps := makeSharedPubSub(t)

	nodeB := rpcnode.New("nodeB", "global", ps, nil, nil)
	defer func() { _ = nodeB.Disconnect() }()
	nodeB.SetHandler(func(_ context.Context, payload interface{}) (interface{}, error) {
		return payload, nil
	})

	nodeA := rpcnode.New("nodeA", "global", ps, nil, nil)
	defer func() { _ = nodeA.Disconnect() }()

	in := map[string]interface{}{
		"present": "value",
		"absent":  rpcnode.Undefined,
		"nested": map[string]interface{}{
			"alsoAbsent": rpcnode.Undefined,
		},
	}

	result, err := nodeA.Call(context.Background(), "nodeB", in, time.Second)
	require.NoError(t, err)

	m := result.(map[string]interface{})
	assert.Equal(t, "value", m["present"])
	assert.Equal(t, rpcnode.Undefined, m["absent"])
	nested := m["nested"].(map[string]interface{})
	assert.Equal(t, rpcnode.Undefined, nested["alsoAbsent"])
}
