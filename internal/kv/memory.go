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

package kv

import (
	"context"
	"path"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

func newMemoryKV() KV {
	return &memoryKV{
		data: xsync.NewMap[string, kvEntry](),
	}
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e kvEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

type memoryKV struct {
	data *xsync.Map[string, kvEntry]
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data.Store(key, kvEntry{value: cp, expiresAt: expiresAt})
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := m.data.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired() {
		m.data.Delete(key)
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (m *memoryKV) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := m.Get(ctx, key)
		if err != nil {
			continue
		}
		out[key] = value
	}
	return out, nil
}

func (m *memoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	m.data.Range(func(key string, entry kvEntry) bool {
		if entry.expired() {
			m.data.Delete(key)
			return true
		}
		matched, err := path.Match(pattern, key)
		if err == nil && matched {
			keys = append(keys, key)
		}
		return true
	})
	return keys, nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *memoryKV) Close() error {
	return nil
}
