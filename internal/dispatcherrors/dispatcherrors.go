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

// Package dispatcherrors holds the sentinel error kinds shared by
// internal/dispatcher, internal/scheduler, and internal/rpcnode so
// callers can compare against one identity with errors.Is regardless
// of which package raised it.
package dispatcherrors

import "errors"

var (
	// ErrClosed is returned when an operation is invoked on a
	// shut-down dispatcher or scheduler.
	ErrClosed = errors.New("dispatcher: closed")

	// ErrNoSuchPeer is returned when an RPC publish delivered to zero
	// subscribers.
	ErrNoSuchPeer = errors.New("rpcnode: no such peer")

	// ErrCallTimeout is returned when an RPC response did not arrive
	// before the caller's deadline.
	ErrCallTimeout = errors.New("rpcnode: call timeout")

	// ErrNoMatch is returned when a match request found no suitable
	// job and creation was not permitted.
	ErrNoMatch = errors.New("scheduler: no match")

	// ErrBadSeatCount is returned when a seat request violates the
	// workload's declared bounds.
	ErrBadSeatCount = errors.New("scheduler: bad seat count")

	// ErrSeatUnavailable indicates a reservation was attempted on a
	// full job. This is an internal-invariant breach surfaced to
	// operators via logs, not returned to external callers.
	ErrSeatUnavailable = errors.New("scheduler: seat unavailable")
)
