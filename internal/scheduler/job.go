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
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/USA-RedDragon/loadfabric/internal/workload"
)

// jobHandle is the workload.JobHandle a Job hands to its constructed
// workload instance; End is called exactly once, either by the
// workload itself or by the scheduler during a forced close/destroy.
type jobHandle struct {
	name  string
	job   *Job
	onEnd func()
	once  sync.Once
}

func (h *jobHandle) Name() string { return h.name }
func (h *jobHandle) End()         { h.once.Do(h.onEnd) }

// Join and Leave forward to the owning Job, giving a workload instance
// a way to report occupant arrival/departure without holding a direct
// reference to *Job.
func (h *jobHandle) Join(playerID string) error { return h.job.Join(playerID) }
func (h *jobHandle) Leave(playerID string) bool { return h.job.Leave(playerID) }

// Job is one active unit of work: a room with a fixed seat capacity,
// a set of occupants, and a set of pending (timed) reservations.
type Job struct {
	name       string
	capacity   int
	properties map[string]interface{}
	workload   workload.Workload
	handle     *jobHandle

	mu           sync.Mutex
	open         bool
	occupants    map[string]struct{}
	reservations map[string]*time.Timer
	observers    []func()
}

func newJob(name string, capacity int, properties map[string]interface{}, onEnd func()) *Job {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	j := &Job{
		name:         name,
		capacity:     capacity,
		properties:   properties,
		open:         true,
		occupants:    make(map[string]struct{}),
		reservations: make(map[string]*time.Timer),
	}
	j.handle = &jobHandle{name: name, job: j, onEnd: onEnd}
	return j
}

// Name returns the job's room name.
func (j *Job) Name() string { return j.name }

// Properties returns the room properties a match criteria predicate
// can inspect. The returned map must not be mutated by callers.
func (j *Job) Properties() map[string]interface{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.properties
}

// IsOpen reports whether the job still accepts reservations.
func (j *Job) IsOpen() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.open
}

// AvailableSeats returns capacity minus current occupants and
// reservations.
func (j *Job) AvailableSeats() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.capacity - len(j.occupants) - len(j.reservations)
}

// Occupancy returns the current occupants+reservations count.
func (j *Job) Occupancy() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.occupants) + len(j.reservations)
}

// ReservationCount returns the current pending-reservation count.
func (j *Job) ReservationCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.reservations)
}

// addObserver registers a hook invoked (outside the job's lock) after
// every reservation/occupancy mutation. Used by capability wrappers
// (room-full auto-emit, auto-destroy-on-idle) composed onto a job at
// creation time.
func (j *Job) addObserver(f func()) {
	j.mu.Lock()
	j.observers = append(j.observers, f)
	j.mu.Unlock()
}

func (j *Job) notify() {
	j.mu.Lock()
	observers := j.observers
	j.mu.Unlock()
	for _, f := range observers {
		f()
	}
}

// Reserve holds a seat for playerID. The seat counts against capacity
// immediately; onExpire fires after holdTime unless the reservation
// is converted to an occupant (Join) or cancelled first.
func (j *Job) Reserve(playerID string, holdTime time.Duration, onExpire func()) error {
	j.mu.Lock()
	if !j.open {
		j.mu.Unlock()
		return dispatcherrors.ErrSeatUnavailable
	}
	if len(j.occupants)+len(j.reservations) >= j.capacity {
		j.mu.Unlock()
		return dispatcherrors.ErrSeatUnavailable
	}
	j.reservations[playerID] = time.AfterFunc(holdTime, onExpire)
	j.mu.Unlock()
	j.notify()
	return nil
}

// ExpireReservation removes playerID's reservation if still present,
// reporting whether it actually did anything. Idempotent: a
// reservation already converted to an occupant (or already expired)
// is a no-op.
func (j *Job) ExpireReservation(playerID string) bool {
	j.mu.Lock()
	_, ok := j.reservations[playerID]
	if ok {
		delete(j.reservations, playerID)
	}
	j.mu.Unlock()
	if ok {
		j.notify()
	}
	return ok
}

// Join converts playerID's reservation into an occupant, cancelling
// its hold timer. Returns dispatcherrors.ErrNoMatch if no reservation
// for playerID exists (it may have already expired).
func (j *Job) Join(playerID string) error {
	j.mu.Lock()
	timer, ok := j.reservations[playerID]
	if !ok {
		j.mu.Unlock()
		return dispatcherrors.ErrNoMatch
	}
	timer.Stop()
	delete(j.reservations, playerID)
	j.occupants[playerID] = struct{}{}
	j.mu.Unlock()
	j.notify()
	return nil
}

// Leave removes playerID from the occupant set, reporting whether it
// was present.
func (j *Job) Leave(playerID string) bool {
	j.mu.Lock()
	_, ok := j.occupants[playerID]
	if ok {
		delete(j.occupants, playerID)
	}
	j.mu.Unlock()
	if ok {
		j.notify()
	}
	return ok
}

// close marks the job as no longer accepting reservations. It does
// not touch existing occupants/reservations.
func (j *Job) close() {
	j.mu.Lock()
	j.open = false
	j.mu.Unlock()
}
