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

// Package workload defines the domain-workload contract internal/scheduler
// builds jobs against. The workload itself (the game room, its player
// events) is out of scope; only its load-emitting, terminate, and
// work-handler surface matters here.
package workload

import "context"

// JobHandle is the scheduler-side handle passed to a workload
// constructor so the workload can report its own completion back
// without holding a reference to the scheduler's internals.
type JobHandle interface {
	// Name returns the job's room name, assigned at creation.
	Name() string
	// End signals that this job is finished; the scheduler removes it
	// from the active set and emits a load-change notification.
	End()
	// Join converts playerID's pending reservation into an occupant. It
	// returns an error if no reservation for playerID exists (it may
	// already have expired).
	Join(playerID string) error
	// Leave removes playerID from the occupant set, reporting whether
	// it was actually present.
	Leave(playerID string) bool
}

// Class describes a workload variant's static seat-count bounds,
// independent of any one job instance. The scheduler validates
// requested seat counts against these before creating a job.
type Class interface {
	DefaultSeatCount() int
	MinSeatCount() int
	MaxSeatCount() int
}

// Workload is one running job instance.
type Workload interface {
	// Terminate requests a graceful stop and returns a channel that
	// closes once the job is drainable: either it has already emitted
	// END via its JobHandle, or all current occupants have left.
	Terminate(ctx context.Context) <-chan struct{}
}

// Constructor builds one Workload instance for a freshly created job.
// transport is the RPC-facing collaborator the workload may use to
// reach other nodes; its concrete type (normally *rpcnode.Node) is
// left opaque here since this contract only needs to pass it through.
type Constructor func(handle JobHandle, transport interface{}) Workload
