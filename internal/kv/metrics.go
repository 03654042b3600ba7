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
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/metrics"
)

// WithMetrics wraps next so every operation records its outcome and
// duration through m. The backend tests in kv_test.go use New without
// this wrapper; cmd/root.go applies it to the node's real store.
func WithMetrics(next KV, m *metrics.Metrics) KV {
	if m == nil {
		return next
	}
	return &instrumentedKV{next: next, metrics: m}
}

type instrumentedKV struct {
	next    KV
	metrics *metrics.Metrics
}

func (k *instrumentedKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := k.next.Set(ctx, key, value, ttl)
	k.record("set", start, err)
	return err
}

func (k *instrumentedKV) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := k.next.Get(ctx, key)
	k.record("get", start, err)
	return v, err
}

func (k *instrumentedKV) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	start := time.Now()
	v, err := k.next.MGet(ctx, keys...)
	k.record("mget", start, err)
	return v, err
}

func (k *instrumentedKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	v, err := k.next.Keys(ctx, pattern)
	k.record("keys", start, err)
	return v, err
}

func (k *instrumentedKV) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := k.next.Delete(ctx, key)
	k.record("delete", start, err)
	return err
}

func (k *instrumentedKV) Close() error {
	return k.next.Close()
}

func (k *instrumentedKV) record(operation string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
		status = "ok"
	case err == ErrNotFound:
		status = "not_found"
	default:
		status = "error"
	}
	k.metrics.RecordKVOperation(operation, status, time.Since(start).Seconds())
}
