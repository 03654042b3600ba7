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

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer binds the configured metrics address and serves
// /metrics in the background. It returns once the listener is bound (or
// binding failed) so the caller can surface a startup error instead of
// discovering a bad port at serve time. The returned *http.Server is nil
// when metrics are disabled; callers should treat a nil server as
// nothing to shut down.
func CreateMetricsServer(cfg *config.Config) (*http.Server, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Metrics.Bind, cfg.Metrics.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metrics listener on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}

	go func() {
		_ = server.Serve(listener)
	}()

	return server, nil
}

// Shutdown gracefully stops a running metrics server returned by
// CreateMetricsServer. A nil server is a no-op.
func Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	return nil
}
