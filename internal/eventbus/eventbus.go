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

// Package eventbus reframes the dispatcher/consumer/RPC-node diamond
// (spec.md §9) as one-way message passing: the scheduler publishes its
// load-change and room-full events onto a Bus and the dispatcher
// subscribes to it, instead of either holding a reference to the
// other's internals.
package eventbus

import (
	"sync"
	"time"
)

// subscriberBuffer bounds how many undelivered events a subscription
// holds, the overflow marker's reserved slot included, before Publish
// starts dropping for it.
const subscriberBuffer = 32

// OverflowEventID is published to a subscriber's own channel, in place
// of a dropped event, when that subscriber's buffer has only its
// reserved last slot left.
const OverflowEventID = "__overflow"

// Event is one message passed across the bus.
type Event struct {
	ID       string
	SenderID string
	Payload  interface{}
}

// Bus is a filtered publish/subscribe hub local to one node.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

type subscription struct {
	id       uint64
	eventID  string // "" matches any
	senderID string // "" matches any
	ch       chan Event
	bus      *Bus
	timer    *time.Timer
	once     sync.Once
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe returns a channel of events matching eventID and senderID;
// an empty string for either matches any value. If timeout is
// positive, the subscription is automatically cancelled (and its
// channel closed) after timeout elapses. Cancel must be called
// otherwise to release the subscription.
func (b *Bus) Subscribe(eventID, senderID string, timeout time.Duration) (events <-chan Event, cancel func()) {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{
		id:       b.nextID,
		eventID:  eventID,
		senderID: senderID,
		ch:       make(chan Event, subscriberBuffer),
		bus:      b,
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	if timeout > 0 {
		sub.timer = time.AfterFunc(timeout, sub.cancel)
	}

	return sub.ch, sub.cancel
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		if s.timer != nil {
			s.timer.Stop()
		}
		close(s.ch)
	})
}

func (s *subscription) matches(ev Event) bool {
	if s.eventID != "" && s.eventID != ev.ID {
		return false
	}
	if s.senderID != "" && s.senderID != ev.SenderID {
		return false
	}
	return true
}

// Publish delivers ev to every matching subscription. Delivery is
// non-blocking; each subscription has a small fixed buffer whose last
// slot is kept for an OverflowEventID marker, so once only that slot
// is left ev is dropped and the marker is delivered in its place.
// Further events are dropped silently until the subscriber drains.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	matching := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matching = append(matching, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matching {
		if len(sub.ch) < cap(sub.ch)-1 {
			select {
			case sub.ch <- ev:
				continue
			default:
			}
		}
		select {
		case sub.ch <- Event{ID: OverflowEventID, SenderID: ev.SenderID}:
		default:
		}
	}
}

// Close cancels every outstanding subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
}
