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

// Package loadregistry maintains approximate knowledge of every peer's
// load over a shared datastore: a throttled write path reports this
// node's own load under a TTL'd key, and a throttled read path lists
// and parses every peer's key.
package loadregistry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/kv"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/USA-RedDragon/loadfabric/internal/pubsub"
)

const loadKeyPrefix = "RDB"

// writeThrottle and readThrottle bound how often this node will touch
// the datastore for load reporting/reading, coalescing bursts on the
// trailing edge. Declared as vars rather than consts so tests can
// shrink them instead of sleeping a full second per assertion.
var (
	writeThrottle = time.Second //nolint:gochecknoglobals
	readThrottle  = time.Second //nolint:gochecknoglobals
)

// Registry is one node's view into the pool's gossiped load table.
type Registry struct {
	poolID string
	nodeID string
	store  kv.KV
	ps     pubsub.PubSub
	ttl    time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics

	writeMu      sync.Mutex
	lastWriteAt  time.Time
	latestLoad   int
	pendingTimer *time.Timer

	readMu      sync.Mutex
	lastReadAt  time.Time
	cachedLoads map[string]int

	onlineMu sync.Mutex
	online   bool
	onlineCh chan bool
}

// New constructs a Registry for nodeID within poolID, backed by store
// for persistence and ps for online/offline tracking. ttl is the load
// key's time-to-live, normally equal to the configured report interval.
func New(poolID, nodeID string, store kv.KV, ps pubsub.PubSub, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		poolID:   poolID,
		nodeID:   nodeID,
		store:    store,
		ps:       ps,
		ttl:      ttl,
		logger:   logger.With("component", "loadregistry", "node_id", nodeID),
		metrics:  m,
		online:   true,
		onlineCh: make(chan bool, 1),
	}
}

func (r *Registry) loadKey(nodeID string) string {
	return fmt.Sprintf("%s:%s:%s", loadKeyPrefix, r.poolID, nodeID)
}

func (r *Registry) keyPattern() string {
	return fmt.Sprintf("%s:%s:*", loadKeyPrefix, r.poolID)
}

func (r *Registry) keyPrefix() string {
	return fmt.Sprintf("%s:%s:", loadKeyPrefix, r.poolID)
}

// Start begins tracking the underlying datastore's connectivity
// signals, updating Online() and forwarding transitions on Signals().
// It returns once the watcher goroutine is running; the goroutine
// exits when ctx is cancelled or the pubsub signal channel closes.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-r.ps.Signals():
				if !ok {
					return
				}
				r.setOnline(state == pubsub.StateOnline)
			}
		}
	}()
}

func (r *Registry) setOnline(online bool) {
	r.onlineMu.Lock()
	changed := r.online != online
	r.online = online
	r.onlineMu.Unlock()

	if !changed {
		return
	}
	select {
	case r.onlineCh <- online:
	default:
	}
}

// Online reports whether the underlying datastore is currently
// reachable.
func (r *Registry) Online() bool {
	r.onlineMu.Lock()
	defer r.onlineMu.Unlock()
	return r.online
}

// Signals emits true/false as the datastore connection transitions
// online/offline.
func (r *Registry) Signals() <-chan bool {
	return r.onlineCh
}

// Signal records a load-change observation from the local consumer.
// Writes are throttled to at most one per second per node, trailing
// edge: a burst of signals within the window collapses to a single
// write reflecting the last observed value once the window elapses.
func (r *Registry) Signal(load int) {
	r.writeMu.Lock()

	r.latestLoad = load
	now := time.Now()
	elapsed := now.Sub(r.lastWriteAt)
	if r.lastWriteAt.IsZero() || elapsed >= writeThrottle {
		r.lastWriteAt = now
		r.writeMu.Unlock()
		r.writeLoad(context.Background(), load)
		return
	}

	if r.pendingTimer == nil {
		remaining := writeThrottle - elapsed
		r.pendingTimer = time.AfterFunc(remaining, r.flushPendingWrite)
	}
	r.writeMu.Unlock()
}

func (r *Registry) flushPendingWrite() {
	r.writeMu.Lock()
	load := r.latestLoad
	r.lastWriteAt = time.Now()
	r.pendingTimer = nil
	r.writeMu.Unlock()

	r.writeLoad(context.Background(), load)
}

// ReportNow writes load unconditionally, bypassing the signal
// throttle. The periodic report timer (cmd/'s gocron job) calls this
// every reportInterval as a freshness lower bound, independent of
// whatever Signal-driven writes have already happened.
func (r *Registry) ReportNow(ctx context.Context, load int) {
	r.writeMu.Lock()
	r.lastWriteAt = time.Now()
	r.writeMu.Unlock()
	r.writeLoad(ctx, load)
}

func (r *Registry) writeLoad(ctx context.Context, load int) {
	start := time.Now()
	err := r.store.Set(ctx, r.loadKey(r.nodeID), []byte(strconv.Itoa(load)), r.ttl)
	if r.metrics != nil {
		r.metrics.RecordLoadReport(time.Since(start).Seconds())
	}
	if err != nil {
		r.logger.Warn("failed to write load report", "error", err)
	}
}

// DeleteLocalKey removes this node's own load key immediately, used
// by the dispatcher's close sequence so peers stop routing to a
// departed node before its TTL would otherwise expire.
func (r *Registry) DeleteLocalKey(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.loadKey(r.nodeID)); err != nil {
		return fmt.Errorf("loadregistry: failed to delete local load key: %w", err)
	}
	return nil
}

// FetchLoads returns every peer's last-reported load, keyed by node
// id. Reads are throttled to one real datastore round trip per
// second; callers within the window receive the cached result.
func (r *Registry) FetchLoads(ctx context.Context) (map[string]int, error) {
	r.readMu.Lock()
	if r.cachedLoads != nil && time.Since(r.lastReadAt) < readThrottle {
		cached := r.cachedLoads
		r.readMu.Unlock()
		return cached, nil
	}
	r.readMu.Unlock()

	keys, err := r.store.Keys(ctx, r.keyPattern())
	if err != nil {
		return nil, fmt.Errorf("loadregistry: failed to list peer load keys: %w", err)
	}

	values, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("loadregistry: failed to read peer loads: %w", err)
	}

	prefix := r.keyPrefix()
	loads := make(map[string]int, len(values))
	for key, raw := range values {
		nodeID := strings.TrimPrefix(key, prefix)
		load, err := strconv.Atoi(string(raw))
		if err != nil {
			r.logger.Warn("ignoring unparseable load value", "key", key, "error", err)
			continue
		}
		loads[nodeID] = load
	}

	r.readMu.Lock()
	r.cachedLoads = loads
	r.lastReadAt = time.Now()
	r.readMu.Unlock()

	if r.metrics != nil {
		r.metrics.SetKnownPeers(float64(len(loads)))
	}
	return loads, nil
}
