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

// Package config carries the fully-resolved configuration the core
// accepts at construction. Nothing under internal/ reads the
// environment directly; loadConfig is the single boundary.
package config

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// Redis configures the shared datastore backing both internal/kv and
// internal/pubsub. When Enabled is false both packages fall back to
// an in-memory implementation, suitable for a single-node pool or tests.
type Redis struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
}

// Metrics configures the Prometheus HTTP exporter.
type Metrics struct {
	Enabled bool
	Bind    string
	Port    int
	// OTLPEndpoint, when non-empty, additionally instruments the Redis
	// client with tracing/metrics via redisotel.
	OTLPEndpoint string
}

// Config stores the fully-resolved configuration for one node.
type Config struct {
	// NodeID overrides the generated node id. Empty means "generate one".
	NodeID string
	// PoolID isolates load keys and RPC channels between logical pools
	// sharing one datastore. Defaults to "global".
	PoolID string

	ReportInterval           time.Duration
	Concurrency              int
	ReservationHoldTime      time.Duration
	RPCTimeout               time.Duration
	AutoDestroyCheckInterval time.Duration

	LogLevel LogLevel
	Redis    Redis
	Metrics  Metrics
}

var (
	currentConfig atomic.Value //nolint:gochecknoglobals
	isInit        atomic.Bool  //nolint:gochecknoglobals
	loaded        atomic.Bool  //nolint:gochecknoglobals
)

func loadConfig() Config {
	cfg := Config{
		NodeID:   os.Getenv("NODE_ID"),
		PoolID:   os.Getenv("POOL_ID"),
		LogLevel: LogLevel(os.Getenv("LOG_LEVEL")),
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_ENABLED") == "true",
			Host:     os.Getenv("REDIS_HOST"),
			Port:     envInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Metrics: Metrics{
			Enabled:      os.Getenv("METRICS_ENABLED") == "true",
			Bind:         os.Getenv("METRICS_BIND"),
			Port:         envInt("METRICS_PORT", 9090),
			OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		},
		ReportInterval:           envDurationMS("REPORT_INTERVAL_MS", 30_000),
		Concurrency:              envInt("CONCURRENCY", 1),
		ReservationHoldTime:      envDurationMS("RESERVATION_HOLD_TIME_MS", 10_000),
		RPCTimeout:               envDurationMS("RPC_TIMEOUT_MS", 15_000),
		AutoDestroyCheckInterval: envDurationMS("AUTO_DESTROY_CHECK_INTERVAL_MS", 10_000),
	}

	if cfg.PoolID == "" {
		cfg.PoolID = "global"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Metrics.Bind == "" {
		cfg.Metrics.Bind = "0.0.0.0"
	}

	return cfg
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDurationMS(key string, defMS int) time.Duration {
	ms, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		ms = defMS
	}
	return time.Duration(ms) * time.Millisecond
}

// GetConfig obtains the current configuration. On the first call it
// loads from the environment; subsequent calls return the same value.
func GetConfig() *Config {
	lastInit := isInit.Swap(true)
	if !lastInit {
		currentConfig.Store(loadConfig())
		loaded.Store(true)
	}
	for !loaded.Load() {
		const loadDelay = 100 * time.Microsecond
		time.Sleep(loadDelay)
	}

	cfg, ok := currentConfig.Load().(Config)
	if !ok {
		panic("config: failed to load configuration")
	}
	return &cfg
}
