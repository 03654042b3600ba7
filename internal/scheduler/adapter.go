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
	"fmt"
)

// ConsumerAdapter exposes a Scheduler through the opaque-payload
// consumer contract internal/dispatcher depends on: Load and Close are
// promoted directly from the embedded Scheduler, and Consume type-
// asserts the dispatcher's opaque payload into a MatchRequest.
type ConsumerAdapter struct {
	*Scheduler
}

// Consume implements dispatcher.Consumer.
func (a ConsumerAdapter) Consume(ctx context.Context, payload interface{}) (interface{}, error) {
	req, ok := payload.(MatchRequest)
	if !ok {
		return nil, fmt.Errorf("scheduler: unexpected payload type %T, want scheduler.MatchRequest", payload)
	}
	return a.Scheduler.Consume(ctx, req)
}
