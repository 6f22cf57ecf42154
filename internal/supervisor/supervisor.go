// Package supervisor owns the lifecycle of a run: it reconciles the live
// virtual-user population against the Workload Scheduler's target on a
// fixed tick, tracks every user's status, and streams periodic
// ReportSnapshots to the aggregator, per spec §4.2.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sosnowski/swarm/internal/config"
	"github.com/sosnowski/swarm/internal/vuser"
	"github.com/sosnowski/swarm/internal/workload"
)

const (
	tickInterval     = 200 * time.Millisecond
	maxSpawnBatch    = 20
	statusChCapacity = 1000
	reportChCapacity = 100
)

// StatusKind distinguishes the two lifecycle events a virtual user emits.
type StatusKind int

const (
	StatusCreated StatusKind = iota
	StatusFinished
)

// Status is one lifecycle event sent by a spawned virtual user.
type Status struct {
	Kind    StatusKind
	Outcome vuser.UserOutcome // meaningful only when Kind == StatusFinished
}

// Snapshot is emitted once per tick: the live population, elapsed seconds,
// and every UserOutcome accumulated since the previous tick.
type Snapshot struct {
	CurrentUsers   int
	ElapsedSeconds int64
	Outcomes       []vuser.UserOutcome
}

// Supervisor reconciles population to target and reports on a fixed tick.
type Supervisor struct {
	scheduler *workload.Scheduler
	schedule  config.Schedule
	logger    *zap.Logger

	statusCh chan Status
	reportCh chan Snapshot

	liveUsers atomic.Int64
}

// New builds a Supervisor for one run. The schedule is cloned into every
// spawned virtual user; callers must not mutate it afterward.
func New(w config.Workload, schedule config.Schedule, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		scheduler: workload.New(w),
		schedule:  schedule,
		logger:    logger.Named("supervisor"),
		statusCh:  make(chan Status, statusChCapacity),
		reportCh:  make(chan Snapshot, reportChCapacity),
	}
}

// Reports returns the channel on which ReportSnapshots are delivered. The
// channel is closed once Run returns.
func (s *Supervisor) Reports() <-chan Snapshot {
	return s.reportCh
}

// LiveUsers returns the current live virtual-user count. Safe to call
// concurrently with Run.
func (s *Supervisor) LiveUsers() int64 {
	return s.liveUsers.Load()
}

// Run drives the tick/status loop until the scheduler has latched and every
// spawned virtual user has finished, per spec §4.2. It returns nil on a
// normal, fully drained completion. If ctx is cancelled while waiting for
// the next event it returns ctx.Err(); if a report could not be delivered
// before ctx expired it returns a wrapped error, which is fatal to the run.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.reportCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	var buffer []vuser.UserOutcome
	startedAt := time.Now()
	live := 0

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()

		case <-ticker.C:
			snapshot := Snapshot{
				CurrentUsers:   live,
				ElapsedSeconds: int64(time.Since(startedAt) / time.Second),
				Outcomes:       buffer,
			}
			buffer = nil

			select {
			case s.reportCh <- snapshot:
			case <-ctx.Done():
				wg.Wait()
				return fmt.Errorf("supervisor: report channel send aborted: %w", ctx.Err())
			}

			target, ok := s.scheduler.Next()
			if !ok {
				if live == 0 {
					wg.Wait()
					s.logger.Info("workload window closed, all users drained")
					return nil
				}
				continue
			}

			toSpawn := target - live
			if toSpawn > maxSpawnBatch {
				toSpawn = maxSpawnBatch
			}
			if toSpawn > 0 {
				s.spawn(toSpawn, &wg)
			}

		case msg := <-s.statusCh:
			switch msg.Kind {
			case StatusCreated:
				live = int(s.liveUsers.Inc())
			case StatusFinished:
				live = int(s.liveUsers.Dec())
				buffer = append(buffer, msg.Outcome)
			}
		}
	}
}

// spawn launches n independent virtual users, each cloning the supervisor's
// immutable schedule, per spec §4.2's spawn policy.
func (s *Supervisor) spawn(n int, wg *sync.WaitGroup) {
	for i := 0; i < n; i++ {
		wg.Add(1)
		schedule := s.schedule.Clone()
		go s.runUser(schedule, wg)
	}
}

// runUser executes one virtual user pass, reporting Created before it
// starts and Finished when it terminates, including via a recovered panic.
func (s *Supervisor) runUser(schedule config.Schedule, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("virtual user panicked", zap.Any("recover", r))
			s.trySend(Status{Kind: StatusFinished, Outcome: vuser.UserOutcome{Err: fmt.Errorf("panic: %v", r)}})
		}
	}()

	s.trySend(Status{Kind: StatusCreated})
	outcome := vuser.New(schedule, s.logger).Run()
	s.trySend(Status{Kind: StatusFinished, Outcome: outcome})
}

// trySend swallows a failed status send. The only way this channel could
// fail to accept a send is if it were closed out from under an in-flight
// user, which this package never does while users may still be running;
// the recover is defensive, matching spec §7's "send failures from a
// virtual user are swallowed" policy.
func (s *Supervisor) trySend(st Status) {
	defer func() { _ = recover() }()
	s.statusCh <- st
}
