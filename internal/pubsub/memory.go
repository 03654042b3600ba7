// SPDX-License-Identifier: AGPL-3.0-or-later
// loadfabric - a distributed load-balanced request dispatch fabric
// Copyright (C) 2026
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero License as published by
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

package pubsub

import (
	"context"
	"sync"
)

// subscriberBuffer bounds how many undelivered messages a single
// in-memory subscription holds before publish starts dropping for it.
const subscriberBuffer = 256

func newMemoryPubSub() PubSub {
	ps := &memoryPubSub{
		topics:  make(map[string]map[int64]*memorySubscription),
		signals: make(chan ConnectionState, 1),
	}
	ps.signals <- StateOnline
	return ps
}

type memorySubscription struct {
	id    int64
	topic string
	ch    chan []byte
	owner *memoryPubSub
	once  sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.owner.unsubscribe(s.topic, s.id)
		close(s.ch)
	})
	return nil
}

func (s *memorySubscription) Channel() <-chan []byte {
	return s.ch
}

type memoryPubSub struct {
	mu      sync.Mutex
	nextID  int64
	topics  map[string]map[int64]*memorySubscription
	signals chan ConnectionState
}

func (ps *memoryPubSub) Subscribe(topic string) Subscription {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &memorySubscription{
		id:    ps.nextID,
		topic: topic,
		ch:    make(chan []byte, subscriberBuffer),
		owner: ps,
	}
	if ps.topics[topic] == nil {
		ps.topics[topic] = make(map[int64]*memorySubscription)
	}
	ps.topics[topic][sub.id] = sub
	return sub
}

func (ps *memoryPubSub) unsubscribe(topic string, id int64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.topics[topic], id)
	if len(ps.topics[topic]) == 0 {
		delete(ps.topics, topic)
	}
}

func (ps *memoryPubSub) Publish(_ context.Context, topic string, message []byte) (int, error) {
	ps.mu.Lock()
	subs := make([]*memorySubscription, 0, len(ps.topics[topic]))
	for _, sub := range ps.topics[topic] {
		subs = append(subs, sub)
	}
	ps.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.ch <- message:
			delivered++
		default:
			// Subscriber buffer full; drop. Pub/sub here is
			// fire-and-forget, not a durable queue.
		}
	}
	return delivered, nil
}

func (ps *memoryPubSub) Signals() <-chan ConnectionState {
	return ps.signals
}

func (ps *memoryPubSub) Close() error {
	ps.mu.Lock()
	all := make([]*memorySubscription, 0)
	for _, subs := range ps.topics {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	ps.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	close(ps.signals)
	return nil
}
