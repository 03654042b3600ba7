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

// Package idgen produces short opaque identifiers for nodes, RPC
// correlation ids, and job names. Every call draws its own
// crypto/rand bytes, so callers on different goroutines never share
// mutable cursor state.
package idgen

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Default lengths per spec.md §4.1.
const (
	CorrelationIDLength = 10
	NodeIDLength        = 5
)

var ErrNoRandom = errors.New("idgen: no random source available")

// New returns a length-character identifier drawn from the 62-character
// alphanumeric alphabet.
func New(length int) (string, error) {
	alphabetSize := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", ErrNoRandom
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// CorrelationID returns a new RPC correlation id / job name.
func CorrelationID() (string, error) {
	return New(CorrelationIDLength)
}

// NodeID returns a new node identifier.
func NodeID() (string, error) {
	return New(NodeIDLength)
}
