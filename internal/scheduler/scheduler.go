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

// Package scheduler owns the set of active jobs on one node and the
// bounded-concurrency machinery that creates new ones, matching the
// consumer surface the dispatcher routes work to.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/loadfabric/internal/dispatcherrors"
	"github.com/USA-RedDragon/loadfabric/internal/eventbus"
	"github.com/USA-RedDragon/loadfabric/internal/idgen"
	"github.com/USA-RedDragon/loadfabric/internal/metrics"
	"github.com/USA-RedDragon/loadfabric/internal/queue"
	"github.com/USA-RedDragon/loadfabric/internal/workload"
	"golang.org/x/sync/semaphore"
)

const jobNameLength = idgen.CorrelationIDLength
const createQueueKey = "create"

// LoadChangeEventID is published on the scheduler's event bus after a
// match request reserves seats, after a reservation expires, and after
// a job ends. An occupant joining or leaving a job does not publish it.
const LoadChangeEventID = "load-change"

// MatchRequest describes a request to seat one or more players.
type MatchRequest struct {
	PlayerIDs []string
	Criteria  func(properties map[string]interface{}) bool
	// Properties seeds a newly created job's room properties when no
	// existing job satisfies Criteria. Ignored when a match is found.
	Properties map[string]interface{}
}

// Option configures optional capabilities composed onto every job the
// scheduler creates.
type Option func(*Scheduler)

// WithRoomFullAutoEmit attaches the room-full-auto-emit capability to
// every job this scheduler creates.
func WithRoomFullAutoEmit() Option {
	return func(s *Scheduler) { s.roomFullAutoEmit = true }
}

// WithAutoDestroyOnIdle attaches the auto-destroy-on-idle capability,
// polling at interval, to every job this scheduler creates.
func WithAutoDestroyOnIdle(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.autoDestroyOnIdle = true
		s.autoDestroyInterval = interval
	}
}

// Scheduler owns the active job set for one workload variant.
type Scheduler struct {
	poolID    string
	class     workload.Class
	ctor      workload.Constructor
	transport interface{}

	holdTime time.Duration
	sem      *semaphore.Weighted
	backlog  *queue.Queue

	roomFullAutoEmit    bool
	autoDestroyOnIdle   bool
	autoDestroyInterval time.Duration

	bus     *eventbus.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	jobs   map[string]*Job
	order  []string

	cancelFuncs []func()
}

// New constructs a Scheduler. concurrency bounds how many job-creation
// operations may be in flight at once; holdTime is the reservation
// hold duration.
func New(poolID string, class workload.Class, ctor workload.Constructor, transport interface{}, concurrency int, holdTime time.Duration, bus *eventbus.Bus, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Scheduler{
		poolID:    poolID,
		class:     class,
		ctor:      ctor,
		transport: transport,
		holdTime:  holdTime,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		backlog:   queue.NewQueue(),
		bus:       bus,
		logger:    logger.With("component", "scheduler", "pool_id", poolID),
		metrics:   m,
		jobs:      make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the count of active jobs, the value the dispatcher
// reports to the load registry.
func (s *Scheduler) Load() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Consume handles a match request: it seats req.PlayerIDs into an
// existing job if one satisfies the criteria, or creates a new one,
// and returns the room name.
func (s *Scheduler) Consume(ctx context.Context, req MatchRequest) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", dispatcherrors.ErrClosed
	}
	job := s.findMatchLocked(req)
	s.mu.Unlock()

	if job == nil {
		var err error
		job, err = s.createJob(ctx, len(req.PlayerIDs), req)
		if err != nil {
			return "", err
		}
	}

	reserved := make([]string, 0, len(req.PlayerIDs))
	for _, playerID := range req.PlayerIDs {
		if err := job.Reserve(playerID, s.holdTime, s.onReservationExpired(job, playerID)); err != nil {
			for _, already := range reserved {
				job.ExpireReservation(already)
			}
			return "", err
		}
		reserved = append(reserved, playerID)
	}

	s.emitLoadChange()
	return job.Name(), nil
}

func (s *Scheduler) findMatchLocked(req MatchRequest) *Job {
	for _, name := range s.order {
		job, ok := s.jobs[name]
		if !ok {
			continue
		}
		if !job.IsOpen() || job.AvailableSeats() < len(req.PlayerIDs) {
			continue
		}
		if req.Criteria != nil && !req.Criteria(job.Properties()) {
			continue
		}
		return job
	}
	return nil
}

func (s *Scheduler) createJob(ctx context.Context, seatCount int, req MatchRequest) (*Job, error) {
	if seatCount < s.class.MinSeatCount() || seatCount > s.class.MaxSeatCount() {
		return nil, dispatcherrors.ErrBadSeatCount
	}

	_, _ = s.backlog.Push(createQueueKey, []byte{0})
	if s.metrics != nil {
		s.metrics.SetQueueDepth(float64(s.backlog.Len(createQueueKey)))
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("scheduler: failed to acquire creation slot: %w", err)
	}
	defer s.sem.Release(1)
	s.backlog.Drain(createQueueKey)
	if s.metrics != nil {
		s.metrics.SetQueueDepth(float64(s.backlog.Len(createQueueKey)))
	}

	name, err := idgen.New(jobNameLength)
	if err != nil {
		return nil, fmt.Errorf("scheduler: failed to allocate job name: %w", err)
	}

	capacity := s.class.DefaultSeatCount()
	if seatCount > capacity {
		capacity = seatCount
	}

	job := newJob(name, capacity, req.Properties, func() { s.handleJobEnd(name) })
	job.workload = s.ctor(job.handle, s.transport)

	if s.roomFullAutoEmit {
		cancel := attachRoomFullAutoEmit(job, s.bus)
		s.cancelFuncs = append(s.cancelFuncs, cancel)
	}
	if s.autoDestroyOnIdle {
		cancel := attachAutoDestroyOnIdle(job, s.autoDestroyInterval)
		s.cancelFuncs = append(s.cancelFuncs, cancel)
	}

	s.mu.Lock()
	s.jobs[name] = job
	s.order = append(s.order, name)
	s.mu.Unlock()

	s.logger.Debug("created job", "job", name, "capacity", capacity)
	if s.metrics != nil {
		s.metrics.RecordJobCreated("ok")
		s.metrics.SetActiveJobs(float64(s.Load()))
	}
	return job, nil
}

func (s *Scheduler) onReservationExpired(job *Job, playerID string) func() {
	return func() {
		if job.ExpireReservation(playerID) {
			s.emitLoadChange()
		}
	}
}

func (s *Scheduler) handleJobEnd(name string) {
	s.mu.Lock()
	_, existed := s.jobs[name]
	delete(s.jobs, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if existed {
		s.logger.Debug("job ended", "job", name)
		s.emitLoadChange()
	}
}

func (s *Scheduler) emitLoadChange() {
	load := s.Load()
	if s.metrics != nil {
		s.metrics.SetActiveJobs(float64(load))
		s.metrics.SetActiveReservations(float64(s.totalReservations()))
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{ID: LoadChangeEventID, SenderID: s.poolID, Payload: load})
	}
}

func (s *Scheduler) totalReservations() int {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	total := 0
	for _, j := range jobs {
		total += j.ReservationCount()
	}
	return total
}

// Close refuses new work and returns a channel that closes once every
// active job has terminated (either via its own END or by having all
// occupants leave).
func (s *Scheduler) Close(ctx context.Context) <-chan struct{} {
	s.mu.Lock()
	s.closed = true
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, j := range jobs {
			j.close()
			wg.Add(1)
			go func(j *Job) {
				defer wg.Done()
				<-j.workload.Terminate(ctx)
			}(j)
		}
		wg.Wait()
		for _, cancel := range s.cancelFuncs {
			cancel()
		}
	}()
	return done
}
