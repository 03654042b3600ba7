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

// Package pubsub is the publish/subscribe half of the datastore
// contract (spec §6): publish reports how many subscribers received
// the message, which the RPC node (internal/rpcnode) relies on to
// detect a vanished peer without a retry round-trip.
package pubsub

import (
	"context"

	"github.com/USA-RedDragon/loadfabric/internal/config"
)

// ConnectionState reports whether the underlying datastore connection
// is currently reachable.
type ConnectionState int

const (
	// StateOnline means the datastore is reachable.
	StateOnline ConnectionState = iota
	// StateOffline means the datastore connection was lost.
	StateOffline
)

// PubSub is the datastore's publish/subscribe surface.
type PubSub interface {
	// Publish returns the number of subscribers that received the
	// message, mirroring Redis's PUBLISH return value. Zero means no
	// subscriber was listening on topic at publish time.
	Publish(ctx context.Context, topic string, message []byte) (int, error)
	Subscribe(topic string) Subscription
	// Signals emits StateOnline/StateOffline transitions as the
	// underlying connection comes up or drops. The first value sent
	// reflects the state at construction time.
	Signals() <-chan ConnectionState
	Close() error
}

// Subscription is a single topic subscription.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// New constructs a PubSub client backed by Redis when enabled,
// otherwise an in-memory implementation for single-node pools and tests.
func New(ctx context.Context, cfg *config.Config) (PubSub, error) {
	if cfg.Redis.Enabled {
		return newRedisPubSub(ctx, cfg)
	}
	return newMemoryPubSub(), nil
}
