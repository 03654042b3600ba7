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

// Package rpcnode is the pub/sub RPC transport: request/response pairs
// between anonymous nodes identified only by opaque ids, carried over
// two channels per node on a shared pub/sub datastore.
package rpcnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/USA-RedDragon/loadfabric/internal/idgen"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/USA-RedDragon/loadfabric/internal/pubsub"
	"github.com/puzpuzpuz/xsync/v4"
)

const requestChannelPrefix = "RPC"

// Handler processes one inbound request payload and returns the
// response payload, or an error that is relayed back to the caller as
// response.Error.
type Handler func(ctx context.Context, payload interface{}) (interface{}, error)

// Node is one node's RPC transport endpoint.
type Node struct {
	id      string
	poolID  string
	ps      pubsub.PubSub
	logger  *slog.Logger
	metrics *metrics.Metrics

	handlerMu sync.RWMutex
	handler   Handler

	pending *xsync.Map[string, chan pendingResult]

	reqSub pubsub.Subscription
	resSub pubsub.Subscription

	wg     sync.WaitGroup
	closed sync.Once
}

type pendingResult struct {
	payload interface{}
	err     error
}

// New constructs a Node identified by id, subscribes its request and
// result channels, and starts serving inbound requests. Call
// SetHandler before any peer can expect a successful response.
func New(id, poolID string, ps pubsub.PubSub, logger *slog.Logger, m *metrics.Metrics) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		id:      id,
		poolID:  poolID,
		ps:      ps,
		logger:  logger.With("component", "rpcnode", "node_id", id),
		metrics: m,
		pending: xsync.NewMap[string, chan pendingResult](),
	}

	n.reqSub = ps.Subscribe(n.requestTopic(id))
	n.resSub = ps.Subscribe(n.resultTopic(id))

	n.wg.Add(2)
	go n.serveRequests()
	go n.serveResults()

	return n
}

// SetHandler installs the local handler invoked for inbound requests.
func (n *Node) SetHandler(h Handler) {
	n.handlerMu.Lock()
	defer n.handlerMu.Unlock()
	n.handler = h
}

func (n *Node) currentHandler() Handler {
	n.handlerMu.RLock()
	defer n.handlerMu.RUnlock()
	return n.handler
}

func (n *Node) requestTopic(id string) string {
	return fmt.Sprintf("%s:%s:%s", requestChannelPrefix, n.poolID, id)
}

func (n *Node) resultTopic(id string) string {
	return fmt.Sprintf("%s:%s:%s:result", requestChannelPrefix, n.poolID, id)
}

// Call invokes peerID's registered handler with payload and waits up
// to timeout for a response. It never retries: NoSuchPeer fails at
// once and CallTimeout once timeout elapses, each after a single
// attempt, leaving fallback decisions to the dispatcher.
func (n *Node) Call(ctx context.Context, peerID string, payload interface{}, timeout time.Duration) (result interface{}, err error) {
	start := time.Now()
	defer func() {
		if n.metrics == nil {
			return
		}
		outcome := "ok"
		switch {
		case errors.Is(err, dispatcherrors.ErrNoSuchPeer):
			outcome = "no_such_peer"
		case errors.Is(err, dispatcherrors.ErrCallTimeout):
			outcome = "timeout"
		case err != nil:
			outcome = "handler_error"
		}
		n.metrics.RecordRPCCall("call", outcome, time.Since(start).Seconds())
	}()

	correlationID, err := idgen.CorrelationID()
	if err != nil {
		return nil, fmt.Errorf("rpcnode: failed to generate correlation id: %w", err)
	}

	encodedPayload, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	req := request{ID: correlationID, Caller: n.id, Payload: encodedPayload}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpcnode: failed to marshal request: %w", err)
	}

	resultCh := make(chan pendingResult, 1)
	n.pending.Store(correlationID, resultCh)
	defer n.pending.Delete(correlationID)

	delivered, err := n.ps.Publish(ctx, n.requestTopic(peerID), raw)
	if err != nil {
		return nil, fmt.Errorf("rpcnode: failed to publish request: %w", err)
	}
	if delivered == 0 {
		return nil, dispatcherrors.ErrNoSuchPeer
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.payload, res.err
	case <-timer.C:
		return nil, dispatcherrors.ErrCallTimeout
	case <-ctx.Done():
		return nil, dispatcherrors.ErrCallTimeout
	}
}

func (n *Node) serveRequests() {
	defer n.wg.Done()
	for msg := range n.reqSub.Channel() {
		n.handleRequest(msg)
	}
}

func (n *Node) handleRequest(msg []byte) {
	var req request
	if err := json.Unmarshal(msg, &req); err != nil {
		n.logger.Warn("failed to decode inbound rpc request", "error", err)
		return
	}

	ctx := context.Background()
	payload, err := decodePayload(req.Payload)
	if err != nil {
		n.publishResponse(ctx, req.Caller, response{ID: req.ID, Error: err.Error()})
		return
	}

	handler := n.currentHandler()
	if handler == nil {
		n.publishResponse(ctx, req.Caller, response{ID: req.ID, Error: "rpcnode: no handler registered"})
		return
	}

	result, err := handler(ctx, payload)
	if err != nil {
		n.publishResponse(ctx, req.Caller, response{ID: req.ID, Error: err.Error()})
		return
	}

	encoded, err := encodePayload(result)
	if err != nil {
		n.publishResponse(ctx, req.Caller, response{ID: req.ID, Error: err.Error()})
		return
	}
	n.publishResponse(ctx, req.Caller, response{ID: req.ID, Payload: encoded})
}

func (n *Node) publishResponse(ctx context.Context, caller string, resp response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		n.logger.Warn("failed to marshal rpc response", "error", err)
		return
	}
	if _, err := n.ps.Publish(ctx, n.resultTopic(caller), raw); err != nil {
		n.logger.Warn("failed to publish rpc response", "error", err, "caller", caller)
	}
}

func (n *Node) serveResults() {
	defer n.wg.Done()
	for msg := range n.resSub.Channel() {
		n.handleResult(msg)
	}
}

func (n *Node) handleResult(msg []byte) {
	var resp response
	if err := json.Unmarshal(msg, &resp); err != nil {
		n.logger.Warn("failed to decode inbound rpc response", "error", err)
		return
	}

	ch, ok := n.pending.Load(resp.ID)
	if !ok {
		// Either a late response after our caller already timed out,
		// or a response for a correlation id we never issued. Both
		// are dropped silently per spec.
		return
	}

	if resp.Error != "" {
		ch <- pendingResult{err: errors.New(resp.Error)}
		return
	}

	payload, err := decodePayload(resp.Payload)
	if err != nil {
		ch <- pendingResult{err: err}
		return
	}
	ch <- pendingResult{payload: payload}
}

// Disconnect unsubscribes both channels. In-flight calls this node
// initiated time out normally via their own timers; it does not force
// them to fail early.
func (n *Node) Disconnect() error {
	var err error
	n.closed.Do(func() {
		if e := n.reqSub.Close(); e != nil {
			err = fmt.Errorf("rpcnode: failed to close request subscription: %w", e)
		}
		if e := n.resSub.Close(); e != nil && err == nil {
			err = fmt.Errorf("rpcnode: failed to close result subscription: %w", e)
		}
		n.wg.Wait()
	})
	return err
}

// ID returns this node's opaque identifier.
func (n *Node) ID() string {
	return n.id
}
