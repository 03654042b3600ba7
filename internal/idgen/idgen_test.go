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

package idgen_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/USA-RedDragon/loadfabric/internal/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func TestNewLength(t *testing.T) {
	t.Parallel()
	id, err := idgen.New(10)
	require.NoError(t, err)
	assert.Len(t, id, 10)
}

func TestNewOnlyAllowedAlphabet(t *testing.T) {
	t.Parallel()
	id, err := idgen.New(100)
	require.NoError(t, err)
	for _, r := range id {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestCorrelationIDLength(t *testing.T) {
	t.Parallel()
	id, err := idgen.CorrelationID()
	require.NoError(t, err)
	assert.Len(t, id, idgen.CorrelationIDLength)
}

func TestNodeIDLength(t *testing.T) {
	t.Parallel()
	id, err := idgen.NodeID()
	require.NoError(t, err)
	assert.Len(t, id, idgen.NodeIDLength)
}

func TestNewZeroLength(t *testing.T) {
	t.Parallel()
	id, err := idgen.New(0)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestConcurrentGenerationHasNoCollisions(t *testing.T) {
	t.Parallel()

	const n = 200
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			id, err := idgen.CorrelationID()
			require.NoError(t, err)
			ids[idx] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "unexpected collision for id %q", id)
		seen[id] = struct{}{}
	}
}
