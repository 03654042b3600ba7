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

// Package queue holds pending byte payloads per key until a consumer
// drains them. internal/scheduler pushes one placeholder entry per
// job creation waiting on its concurrency gate, under a single key,
// and reads the queue's length for its queue-depth gauge.
package queue

import "sync"

// Queue is a concurrency-safe in-memory multi-key FIFO.
type Queue struct {
	mu   sync.Mutex
	data map[string][][]byte // key -> ordered payloads
}

func NewQueue() *Queue {
	return &Queue{
		data: make(map[string][][]byte),
	}
}

// Push appends value to key's queue and returns the queue's new length.
func (q *Queue) Push(key string, value []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data[key] = append(q.data[key], value)
	return len(q.data[key]), nil
}

// Drain removes and returns all pending values for key.
func (q *Queue) Drain(key string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	values := q.data[key]
	delete(q.data, key)
	return values
}

// Len reports how many values are pending for key without draining them.
func (q *Queue) Len(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data[key])
}

func (q *Queue) Delete(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.data, key)
	return nil
}
