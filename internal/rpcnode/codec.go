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

import (
	"encoding/json"
	"fmt"
)

// undefinedSentinel is substituted on the wire for a map key that is
// present but explicitly undefined, since JSON has no way to encode
// "absent" within an already-present key. Decoding restores it to
// Undefined so decode(encode(x)) == x.
const undefinedSentinel = "__RLB_undefined"

type undefinedType struct{}

// Undefined marks a payload field as present-but-undefined, distinct
// from an explicit JSON null or from the key being entirely absent.
var Undefined = undefinedType{} //nolint:gochecknoglobals

func encodeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case undefinedType:
		return undefinedSentinel
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = encodeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = encodeValue(val)
		}
		return out
	default:
		return v
	}
}

func decodeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if t == undefinedSentinel {
			return Undefined
		}
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = decodeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = decodeValue(val)
		}
		return out
	default:
		return v
	}
}

// encodePayload marshals an arbitrary payload value to its wire
// representation, substituting undefinedSentinel for any Undefined
// marker found at any nesting depth.
func encodePayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(encodeValue(payload))
	if err != nil {
		return nil, fmt.Errorf("rpcnode: failed to encode payload: %w", err)
	}
	return raw, nil
}

// decodePayload parses the wire representation back into an arbitrary
// payload value, restoring any undefinedSentinel string to Undefined.
func decodePayload(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("rpcnode: failed to decode payload: %w", err)
	}
	return decodeValue(v), nil
}
