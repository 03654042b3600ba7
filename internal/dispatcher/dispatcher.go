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

// Package dispatcher exposes consume(payload) -> response to the local
// caller, routing to the lowest-loaded node in the pool and falling
// back to local execution unconditionally on any RPC failure.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/USA-RedDragon/loadfabric/internal/eventbus"
	"github.com/USA-RedDragon/loadfabric/internal/loadregistry"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/USA-RedDragon/loadfabric/internal/rpcnode"
	"github.com/USA-RedDragon/loadfabric/internal/scheduler"
)

// Consumer is the local work sink the dispatcher either calls directly
// or delegates to the RPC node's inbound handler. internal/scheduler's
// ConsumerAdapter satisfies this.
type Consumer interface {
	Load() int
	Consume(ctx context.Context, payload interface{}) (interface{}, error)
	Close(ctx context.Context) <-chan struct{}
}

// Dispatcher is one node's routing front door.
type Dispatcher struct {
	poolID string
	nodeID string

	consumer   Consumer
	registry   *loadregistry.Registry
	rpc        *rpcnode.Node
	rpcTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	open bool
}

// New constructs a Dispatcher and installs it as the rpc node's inbound
// request handler.
func New(poolID, nodeID string, consumer Consumer, registry *loadregistry.Registry, rpc *rpcnode.Node, rpcTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		poolID:     poolID,
		nodeID:     nodeID,
		consumer:   consumer,
		registry:   registry,
		rpc:        rpc,
		rpcTimeout: rpcTimeout,
		logger:     logger.With("component", "dispatcher", "node_id", nodeID),
		metrics:    m,
		open:       true,
	}
	rpc.SetHandler(d.handleRPC)
	return d
}

// Start begins the registry's connectivity watcher and the
// load-change/reconnect feedback loops that keep the registry's
// reported load current. It returns once the watcher goroutines are
// running.
func (d *Dispatcher) Start(ctx context.Context, bus *eventbus.Bus) {
	d.registry.Start(ctx)
	go d.watchLoadChanges(ctx, bus)
	go d.watchReconnects(ctx)
}

func (d *Dispatcher) watchLoadChanges(ctx context.Context, bus *eventbus.Bus) {
	if bus == nil {
		return
	}
	events, cancel := bus.Subscribe(scheduler.LoadChangeEventID, d.poolID, 0)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if load, ok := ev.Payload.(int); ok {
				d.registry.Signal(load)
			}
		}
	}
}

func (d *Dispatcher) watchReconnects(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-d.registry.Signals():
			if !ok {
				return
			}
			if online {
				d.registry.ReportNow(ctx, d.consumer.Load())
			}
		}
	}
}

func (d *Dispatcher) handleRPC(ctx context.Context, payload interface{}) (interface{}, error) {
	return d.consumer.Consume(ctx, payload)
}

// Consume routes payload to the lowest-loaded node and returns its
// response. Ties prefer the local node; any RPC failure falls back to
// local execution unconditionally and without retry.
func (d *Dispatcher) Consume(ctx context.Context, payload interface{}) (interface{}, error) {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()
	if !open {
		return nil, dispatcherrors.ErrClosed
	}

	if !d.registry.Online() {
		return d.localConsume(ctx, payload)
	}

	peerID, shouldRoute, err := d.selectPeer(ctx)
	if err != nil {
		d.logger.Warn("failed to fetch peer loads, falling back to local", "error", err)
		return d.localConsume(ctx, payload)
	}
	if !shouldRoute {
		return d.localConsume(ctx, payload)
	}

	resp, err := d.rpc.Call(ctx, peerID, payload, d.rpcTimeout)
	if err != nil {
		d.logger.Warn("rpc call failed, falling back to local", "peer", peerID, "error", err)
		if d.metrics != nil {
			d.metrics.RecordDispatcherFallback()
		}
		return d.localConsume(ctx, payload)
	}
	if d.metrics != nil {
		d.metrics.RecordDispatcherSelection("remote")
	}
	return resp, nil
}

func (d *Dispatcher) localConsume(ctx context.Context, payload interface{}) (interface{}, error) {
	if d.metrics != nil {
		d.metrics.RecordDispatcherSelection("local")
	}
	return d.consumer.Consume(ctx, payload)
}

// selectPeer picks the minimum-load peer, self included, breaking ties
// in favor of self. shouldRoute is false when self is the minimum (no
// RPC should be issued).
func (d *Dispatcher) selectPeer(ctx context.Context) (peerID string, shouldRoute bool, err error) {
	loads, err := d.registry.FetchLoads(ctx)
	if err != nil {
		return "", false, err
	}

	bestID := d.nodeID
	bestLoad := d.consumer.Load()
	peerCount := 0
	for candidateID, load := range loads {
		if candidateID == d.nodeID {
			continue
		}
		peerCount++
		if load < bestLoad {
			bestLoad = load
			bestID = candidateID
		}
	}
	if d.metrics != nil {
		d.metrics.SetPeersOnline(float64(peerCount))
	}

	if bestID == d.nodeID {
		return "", false, nil
	}
	return bestID, true, nil
}

// Close refuses new work, deletes the local load key, disconnects the
// RPC node, and closes the consumer (draining outstanding work). The
// returned channel closes once all of that has completed.
func (d *Dispatcher) Close(ctx context.Context) <-chan struct{} {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.registry.DeleteLocalKey(ctx); err != nil {
			d.logger.Warn("failed to delete local load key", "error", err)
		}
		if err := d.rpc.Disconnect(); err != nil {
			d.logger.Warn("failed to disconnect rpc node", "error", err)
		}
		<-d.consumer.Close(ctx)
	}()
	return done
}
