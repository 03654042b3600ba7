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

// Package kv is the key/value half of the datastore contract (spec §6):
// set/get/mget/keys/del with TTL. The load registry builds on it to
// gossip peer load; nothing else in the fabric touches it directly.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// KV is the datastore's key/value surface.
type KV interface {
	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns ErrNotFound if the key is absent or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns a map of only the keys that were present and unexpired.
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)
	// Keys lists all keys matching a shell-style glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// New constructs a KV client backed by Redis when enabled, otherwise
// an in-memory implementation suitable for single-node pools and tests.
func New(ctx context.Context, cfg *config.Config) (KV, error) {
	if cfg.Redis.Enabled {
		redisKV, err := newRedisKV(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis kv: %w", err)
		}
		return redisKV, nil
	}

	return newMemoryKV(), nil
}
