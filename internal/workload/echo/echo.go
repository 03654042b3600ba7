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

// Package echo is a minimal reference workload: it seats one occupant
// by default (up to four when more seats are requested), echoes back
// whatever it is handed, and terminates as soon as asked. It exists to
// exercise the dispatcher/scheduler/rpcnode stack end to end without
// any real domain logic attached.
package echo

import (
	"context"
	"log/slog"
	"sync"

	"github.com/USA-RedDragon/loadfabric/internal/workload"
)

const (
	defaultSeatCount = 1
	minSeatCount     = 1
	maxSeatCount     = 4
)

// Class is the echo workload's static seat-count description,
// satisfying workload.Class.
type Class struct{}

func (Class) DefaultSeatCount() int { return defaultSeatCount }
func (Class) MinSeatCount() int     { return minSeatCount }
func (Class) MaxSeatCount() int     { return maxSeatCount }

// Workload echoes every request payload back unchanged, joining the
// sending player to the job's occupant set on first contact and
// leaving every joined player on termination.
type Workload struct {
	handle workload.JobHandle
	logger *slog.Logger

	mu     sync.Mutex
	joined map[string]struct{}
	done   chan struct{}
	once   sync.Once
}

var _ workload.Workload = (*Workload)(nil)

// New satisfies workload.Constructor. transport is accepted but unused
// since echo never calls out to peers.
func New(handle workload.JobHandle, _ interface{}) workload.Workload {
	return &Workload{
		handle: handle,
		logger: slog.Default().With("component", "workload.echo", "job", handle.Name()),
		joined: make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

// Handle processes a request payload by returning it unchanged, and
// joins the sending player to the job's occupant set on first contact.
// playerID is read from a "player_id" key when payload is a
// map[string]interface{}; payloads without one are echoed without a
// join (e.g. probes with no attached player).
func (w *Workload) Handle(_ context.Context, payload interface{}) (interface{}, error) {
	if m, ok := payload.(map[string]interface{}); ok {
		if playerID, ok := m["player_id"].(string); ok {
			w.joinOnce(playerID)
		}
	}
	return payload, nil
}

func (w *Workload) joinOnce(playerID string) {
	w.mu.Lock()
	_, already := w.joined[playerID]
	if !already {
		w.joined[playerID] = struct{}{}
	}
	w.mu.Unlock()
	if already {
		return
	}
	if err := w.handle.Join(playerID); err != nil {
		w.logger.Warn("failed to join player", "player", playerID, "error", err)
	}
}

// Terminate leaves every player this workload joined, then emits END on
// its handle and resolves.
func (w *Workload) Terminate(_ context.Context) <-chan struct{} {
	w.once.Do(func() {
		w.logger.Debug("terminating echo workload")
		w.mu.Lock()
		players := make([]string, 0, len(w.joined))
		for playerID := range w.joined {
			players = append(players, playerID)
		}
		w.mu.Unlock()
		for _, playerID := range players {
			w.handle.Leave(playerID)
		}
		w.handle.End()
		close(w.done)
	})
	return w.done
}
