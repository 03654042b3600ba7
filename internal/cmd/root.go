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

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/USA-RedDragon/loadfabric/internal/dispatcher"
	"github.com/USA-RedDragon/loadfabric/internal/eventbus"
	"github.com/USA-RedDragon/loadfabric/internal/idgen"
	"github.com/USA-RedDragon/loadfabric/internal/kv"
	"github.com/USA-RedDragon/loadfabric/internal/loadregistry"
	"github.com/USA-RedDragon/loadfabric/internal/logging"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/USA-RedDragon/loadfabric/internal/pubsub"
	"github.com/USA-RedDragon/loadfabric/internal/rpcnode"
	"github.com/USA-RedDragon/loadfabric/internal/scheduler"
	"github.com/USA-RedDragon/loadfabric/internal/workload/echo"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
)

// NewCommand builds the root loadfabric-node command.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loadfabric-node",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("loadfabric-node - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Setup(cfg)

	nodeID := cfg.NodeID
	if nodeID == "" {
		generated, err := idgen.NodeID()
		if err != nil {
			return fmt.Errorf("failed to generate node id: %w", err)
		}
		nodeID = generated
	}
	logger = logger.With("node_id", nodeID, "pool_id", cfg.PoolID)

	metricsServer, err := metrics.CreateMetricsServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	m := metrics.NewMetrics()

	store, err := kv.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}
	store = kv.WithMetrics(store, m)

	ps, err := pubsub.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	bus := eventbus.New()

	registry := loadregistry.New(cfg.PoolID, nodeID, store, ps, cfg.ReportInterval, logger, m)
	rpc := rpcnode.New(nodeID, cfg.PoolID, ps, logger, m)

	var class echo.Class
	sched := scheduler.New(cfg.PoolID, class, echo.New, rpc, cfg.Concurrency, cfg.ReservationHoldTime, bus, logger, m,
		scheduler.WithRoomFullAutoEmit(),
		scheduler.WithAutoDestroyOnIdle(cfg.AutoDestroyCheckInterval),
	)

	dispatch := dispatcher.New(cfg.PoolID, nodeID, scheduler.ConsumerAdapter{Scheduler: sched}, registry, rpc, cfg.RPCTimeout, logger, m)
	dispatch.Start(ctx, bus)

	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create periodic task scheduler: %w", err)
	}
	if _, err := cron.NewJob(
		gocron.DurationJob(cfg.ReportInterval),
		gocron.NewTask(func() {
			registry.ReportNow(ctx, sched.Load())
		}),
	); err != nil {
		return fmt.Errorf("failed to schedule periodic load report: %w", err)
	}
	cron.Start()

	logger.Info("loadfabric node started")

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	<-shutdownCtx.Done()

	logger.Warn("shutting down")

	const shutdownTimeout = 10 * time.Second
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := cron.StopJobs(); err != nil {
		logger.Warn("failed to stop periodic tasks", "error", err)
	}
	if err := cron.Shutdown(); err != nil {
		logger.Warn("failed to shut down periodic task scheduler", "error", err)
	}

	select {
	case <-dispatch.Close(closeCtx):
	case <-closeCtx.Done():
		logger.Warn("dispatcher close timed out")
	}

	if err := metrics.Shutdown(closeCtx, metricsServer); err != nil {
		logger.Warn("failed to shut down metrics server", "error", err)
	}
	if err := ps.Close(); err != nil {
		logger.Warn("failed to close pubsub", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Warn("failed to close key-value store", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
