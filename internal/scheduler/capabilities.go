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

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/eventbus"
)

// RoomFullEventID is published when a job reaches capacity under the
// room-full-auto-emit capability.
const RoomFullEventID = "ROOM_FULL"

// attachRoomFullAutoEmit composes the room-full-auto-emit capability
// onto job: once occupancy first reaches capacity, it publishes
// RoomFullEventID and then unsubscribes from further notifications.
// This is a free-standing observer, not a Job subtype.
func attachRoomFullAutoEmit(job *Job, bus *eventbus.Bus) func() {
	var once sync.Once
	var cancelled bool
	var mu sync.Mutex

	check := func() {
		mu.Lock()
		if cancelled {
			mu.Unlock()
			return
		}
		mu.Unlock()

		if job.Occupancy() < job.capacity {
			return
		}
		once.Do(func() {
			if bus != nil {
				bus.Publish(eventbus.Event{ID: RoomFullEventID, SenderID: job.Name()})
			}
			mu.Lock()
			cancelled = true
			mu.Unlock()
		})
	}

	job.addObserver(check)
	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
	}
}

// attachAutoDestroyOnIdle composes the auto-destroy-on-idle capability
// onto job: it polls at interval and destroys the job after two
// consecutive observations that occupants+reservations == 0, to avoid
// destroying during the transient zero window between matching and
// arrival. Returns a cancel func that stops the poller.
func attachAutoDestroyOnIdle(job *Job, interval time.Duration) func() {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		consecutiveIdle := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if job.Occupancy() == 0 {
					consecutiveIdle++
				} else {
					consecutiveIdle = 0
				}
				if consecutiveIdle >= 2 {
					job.close()
					job.handle.End()
					return
				}
			}
		}
	}()

	return cancel
}
