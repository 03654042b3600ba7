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

package rpcnode

import "encoding/json"

// request is the envelope published to a peer's request channel.
type request struct {
	ID      string          `json:"id"`
	Caller  string          `json:"caller"`
	Payload json.RawMessage `json:"payload"`
}

// response is the envelope published to a caller's result channel.
// Error is populated instead of Payload when the local handler
// returned an error; this is the explicit-error-field variant spec.md
// §4.2 allows as an alternative to a sentinel payload value.
type response struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}
