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

package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/USA-RedDragon/loadfabric/internal/kv"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestWithMetricsRecordsOperationsByStatus(t *testing.T) {
	store, err := kv.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	m := metrics.NewMetrics()
	instrumented := kv.WithMetrics(store, m)

	require.NoError(t, instrumented.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, err = instrumented.Get(context.Background(), "k")
	require.NoError(t, err)
	_, err = instrumented.Get(context.Background(), "missing")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.Equal(t, float64(1), testutil.ToFloat64(m.KVOperationsTotal.WithLabelValues("set", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.KVOperationsTotal.WithLabelValues("get", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.KVOperationsTotal.WithLabelValues("get", "not_found")))
}

func TestWithMetricsNilMetricsPassesThrough(t *testing.T) {
	store, err := kv.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	instrumented := kv.WithMetrics(store, nil)
	require.NoError(t, instrumented.Set(context.Background(), "k", []byte("v"), time.Minute))
}
