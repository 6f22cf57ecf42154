// Package aggregator folds streaming supervisor.Snapshots into a
// per-endpoint frequency-histogram model and derives average / median /
// p95 / p99 statistics on demand, per spec §4.4.
package aggregator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sosnowski/swarm/internal/supervisor"
	"github.com/sosnowski/swarm/internal/vuser"
)

// EndpointStats accumulates everything observed for one endpoint id.
// Durations maps duration_ms -> count for successful requests only; the
// sum of its values always equals Requests - Errors, per spec's invariant.
type EndpointStats struct {
	Requests   int
	Errors     int
	ErrorKinds map[vuser.ErrorKind]int
	Durations  map[int64]int
}

func newEndpointStats() *EndpointStats {
	return &EndpointStats{
		ErrorKinds: make(map[vuser.ErrorKind]int),
		Durations:  make(map[int64]int),
	}
}

// Aggregator maintains EndpointStats for every endpoint id seen, plus
// running totals for current/failed users and elapsed seconds.
type Aggregator struct {
	mu sync.Mutex

	endpoints      map[string]*EndpointStats
	currentUsers   int
	failedUsers    int
	elapsedSeconds int64

	logger *zap.Logger
}

// New returns an empty Aggregator.
func New(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		endpoints: make(map[string]*EndpointStats),
		logger:    logger.Named("aggregator"),
	}
}

// Run drains reports until the channel closes (a normal, successful end of
// run) or ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, reports <-chan supervisor.Snapshot) error {
	for {
		select {
		case snap, ok := <-reports:
			if !ok {
				a.logger.Info("report channel closed, aggregator finalizing")
				return nil
			}
			a.ingest(snap)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ingest folds one ReportSnapshot into the running totals and per-endpoint
// histograms, per spec §4.4.
func (a *Aggregator) ingest(snap supervisor.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentUsers = snap.CurrentUsers
	a.elapsedSeconds = snap.ElapsedSeconds

	for _, outcome := range snap.Outcomes {
		if !outcome.OK() {
			a.failedUsers++
			continue
		}
		for _, result := range outcome.Results {
			ep := a.endpointLocked(result.ID)
			ep.Requests++
			if result.Error {
				ep.Errors++
				ep.ErrorKinds[result.ErrorKind]++
			} else {
				ep.Durations[result.DurationMS]++
			}
		}
	}
}

func (a *Aggregator) endpointLocked(id string) *EndpointStats {
	ep, ok := a.endpoints[id]
	if !ok {
		ep = newEndpointStats()
		a.endpoints[id] = ep
	}
	return ep
}

// RunStats is a read-only projection of the aggregator's current state,
// recomputed on every call — it is derived, never stored.
type RunStats struct {
	CurrentUsers   int
	FailedUsers    int
	ElapsedSeconds int64
	Endpoints      map[string]EndpointReport
}

// EndpointReport is one endpoint's counts plus its derived statistics.
type EndpointReport struct {
	ID         string
	Requests   int
	Errors     int
	ErrorKinds map[vuser.ErrorKind]int
	Stats      Stats
}

// Snapshot derives the current RunStats, triggering statistic derivation
// for every endpoint. Intended to be called once per renderer tick.
func (a *Aggregator) Snapshot() RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := RunStats{
		CurrentUsers:   a.currentUsers,
		FailedUsers:    a.failedUsers,
		ElapsedSeconds: a.elapsedSeconds,
		Endpoints:      make(map[string]EndpointReport, len(a.endpoints)),
	}

	for id, ep := range a.endpoints {
		out.Endpoints[id] = EndpointReport{
			ID:         id,
			Requests:   ep.Requests,
			Errors:     ep.Errors,
			ErrorKinds: copyErrorKinds(ep.ErrorKinds),
			Stats:      deriveStats(ep.Durations),
		}
	}

	return out
}

func copyErrorKinds(in map[vuser.ErrorKind]int) map[vuser.ErrorKind]int {
	out := make(map[vuser.ErrorKind]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
