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

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidRedisHost indicates that the provided Redis host is not valid.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPoolID indicates that the provided pool id is empty.
	ErrInvalidPoolID = errors.New("pool id must not be empty")
	// ErrInvalidConcurrency indicates that the provided concurrency is not positive.
	ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")
	// ErrInvalidReportInterval indicates that the provided report interval is not positive.
	ErrInvalidReportInterval = errors.New("report interval must be positive")
	// ErrInvalidReservationHoldTime indicates that the provided reservation hold time is not positive.
	ErrInvalidReservationHoldTime = errors.New("reservation hold time must be positive")
	// ErrInvalidRPCTimeout indicates that the provided RPC timeout is not positive.
	ErrInvalidRPCTimeout = errors.New("rpc timeout must be positive")
	// ErrInvalidAutoDestroyCheckInterval indicates the auto-destroy poll interval is not positive.
	ErrInvalidAutoDestroyCheckInterval = errors.New("auto-destroy check interval must be positive")
)

// Validate validates the Redis configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}

	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}

	return nil
}

// Validate validates the full configuration.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}

	if c.PoolID == "" {
		return ErrInvalidPoolID
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ReportInterval <= 0 {
		return ErrInvalidReportInterval
	}

	if c.ReservationHoldTime <= 0 {
		return ErrInvalidReservationHoldTime
	}

	if c.RPCTimeout <= 0 {
		return ErrInvalidRPCTimeout
	}

	if c.AutoDestroyCheckInterval <= 0 {
		return ErrInvalidAutoDestroyCheckInterval
	}

	if err := c.Redis.Validate(); err != nil {
		return err
	}

	if err := c.Metrics.Validate(); err != nil {
		return err
	}

	return nil
}
