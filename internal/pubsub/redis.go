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

package pubsub

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/config"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const connsPerCPU = 10
const maxIdleTime = 10 * time.Minute
const healthCheckInterval = 2 * time.Second

func newRedisPubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		PoolFIFO:        true,
		PoolSize:        runtime.GOMAXPROCS(0) * connsPerCPU,
		MinIdleConns:    runtime.GOMAXPROCS(0),
		ConnMaxIdleTime: maxIdleTime,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		if err := redisotel.InstrumentTracing(client); err != nil {
			return nil, fmt.Errorf("failed to trace redis: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
		}
	}

	ps := &redisPubSub{
		client:   client,
		signals:  make(chan ConnectionState, 1),
		stopHC:   make(chan struct{}),
		lastSeen: StateOnline,
	}
	ps.signals <- StateOnline
	go ps.healthCheckLoop()
	return ps, nil
}

type redisPubSub struct {
	client *redis.Client

	mu       sync.Mutex
	lastSeen ConnectionState
	signals  chan ConnectionState
	stopHC   chan struct{}
	hcOnce   sync.Once
}

func (ps *redisPubSub) healthCheckLoop() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ps.stopHC:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckInterval)
			_, err := ps.client.Ping(ctx).Result()
			cancel()

			ps.mu.Lock()
			next := StateOnline
			if err != nil {
				next = StateOffline
			}
			changed := next != ps.lastSeen
			ps.lastSeen = next
			ps.mu.Unlock()

			if changed {
				ps.signals <- next
			}
		}
	}
}

func (ps *redisPubSub) Publish(ctx context.Context, topic string, message []byte) (int, error) {
	count, err := ps.client.Publish(ctx, topic, message).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return int(count), nil
}

func (ps *redisPubSub) Subscribe(topic string) Subscription {
	ctx := context.Background()
	sub := ps.client.Subscribe(ctx, topic)
	return &redisSubscription{sub: sub, rawCh: sub.Channel()}
}

func (ps *redisPubSub) Signals() <-chan ConnectionState {
	return ps.signals
}

func (ps *redisPubSub) Close() error {
	ps.hcOnce.Do(func() { close(ps.stopHC) })
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	close(ps.signals)
	return nil
}

type redisSubscription struct {
	sub   *redis.PubSub
	rawCh <-chan *redis.Message
	once  sync.Once
	out   chan []byte
	mu    sync.Mutex
}

func (s *redisSubscription) Close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("failed to close redis subscription: %w", err)
	}
	return nil
}

func (s *redisSubscription) Channel() <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		return s.out
	}
	s.out = make(chan []byte)
	go func() {
		for msg := range s.rawCh {
			s.out <- []byte(msg.Payload)
		}
		close(s.out)
	}()
	return s.out
}
