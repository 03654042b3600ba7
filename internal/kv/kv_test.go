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

package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/USA-RedDragon/loadfabric/internal/kv"
	"github.com/stretchr/testify/assert"
)

func makeTestKV(t *testing.T) kv.KV {
	t.Helper()
	store, err := kv.New(context.Background(), &config.Config{})
	assert.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestKVSetAndGet(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	err := store.Set(ctx, "testkey", []byte("testvalue"), 0)
	assert.NoError(t, err)

	val, err := store.Get(ctx, "testkey")
	assert.NoError(t, err)
	assert.Equal(t, "testvalue", string(val))
}

func TestKVGetNonexistent(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVDelete(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	_ = store.Set(ctx, "delme", []byte("val"), 0)

	err := store.Delete(ctx, "delme")
	assert.NoError(t, err)

	_, err = store.Get(ctx, "delme")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVTTLExpires(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	err := store.Set(ctx, "expiring", []byte("val"), 50*time.Millisecond)
	assert.NoError(t, err)

	val, err := store.Get(ctx, "expiring")
	assert.NoError(t, err)
	assert.Equal(t, "val", string(val))

	time.Sleep(100 * time.Millisecond)

	_, err = store.Get(ctx, "expiring")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	_ = store.Set(ctx, "forever", []byte("val"), 0)
	time.Sleep(20 * time.Millisecond)

	val, err := store.Get(ctx, "forever")
	assert.NoError(t, err)
	assert.Equal(t, "val", string(val))
}

func TestKVKeysPattern(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	_ = store.Set(ctx, "scan:a", []byte("1"), 0)
	_ = store.Set(ctx, "scan:b", []byte("2"), 0)
	_ = store.Set(ctx, "other", []byte("3"), 0)

	keys, err := store.Keys(ctx, "scan:*")
	assert.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestKVMGetSkipsMissingAndExpired(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	_ = store.Set(ctx, "a", []byte("1"), 0)
	_ = store.Set(ctx, "b", []byte("2"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	got, err := store.MGet(ctx, "a", "b", "missing")
	assert.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, got)
}

func TestKVOverwrite(t *testing.T) {
	t.Parallel()
	store := makeTestKV(t)
	ctx := context.Background()

	_ = store.Set(ctx, "key", []byte("first"), 0)
	_ = store.Set(ctx, "key", []byte("second"), 0)

	val, err := store.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Equal(t, "second", string(val))
}

func TestKVClose(t *testing.T) {
	t.Parallel()
	store, err := kv.New(context.Background(), &config.Config{})
	assert.NoError(t, err)

	assert.NoError(t, store.Close())
}

func BenchmarkKVSet(b *testing.B) {
	store, _ := kv.New(context.Background(), &config.Config{})
	val := []byte("benchmark-value-data")
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Set(ctx, "bench-key", val, 0)
	}
}

func BenchmarkKVGet(b *testing.B) {
	store, _ := kv.New(context.Background(), &config.Config{})
	ctx := context.Background()
	_ = store.Set(ctx, "bench-key", []byte("benchmark-value-data"), 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get(ctx, "bench-key")
	}
}
