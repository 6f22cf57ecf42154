// Package workload implements the pull-based workload scheduler: a
// translation from elapsed time to the instantaneous target population of
// concurrent virtual users, per the four workload shapes in spec §3/§4.1.
//
// The arithmetic is kept as a stateless function of elapsed seconds
// (computeTarget) so it is trivially table-testable; Scheduler is the thin,
// latching, wall-clock-driven wrapper the supervisor actually calls.
package workload

import (
	"math"
	"time"

	"github.com/sosnowski/swarm/internal/config"
)

// Scheduler is a pull-based, latching producer of target user counts. Once
// Next returns ok=false the scheduler has permanently ended; every
// subsequent call also returns ok=false.
type Scheduler struct {
	workload  config.Workload
	startedAt time.Time
	done      bool
}

// New constructs a Scheduler whose elapsed-time clock starts now.
func New(w config.Workload) *Scheduler {
	return &Scheduler{workload: w, startedAt: time.Now()}
}

// Next returns the instantaneous target population, or ok=false once the
// workload window has permanently ended.
func (s *Scheduler) Next() (target int, ok bool) {
	if s.done {
		return 0, false
	}
	elapsed := time.Since(s.startedAt)
	target, ok = computeTarget(s.workload, secondsTruncated(elapsed))
	if !ok {
		s.done = true
	}
	return target, ok
}

func secondsTruncated(d time.Duration) int64 {
	return int64(d / time.Second)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// computeTarget is the pure heart of §4.1's shape table. elapsedSec is
// whole seconds since the scheduler was constructed.
func computeTarget(w config.Workload, elapsedSec int64) (target int, ok bool) {
	switch w.Shape {
	case config.ShapeConstant:
		return constantTarget(w, elapsedSec)
	case config.ShapeLinear:
		return linearTarget(w, elapsedSec)
	case config.ShapeEaseOut:
		return easeOutTarget(w, elapsedSec)
	case config.ShapeSin:
		return sinTarget(w, elapsedSec)
	default:
		return 0, false
	}
}

func constantTarget(w config.Workload, elapsedSec int64) (int, bool) {
	duration := seconds(w.Duration)
	if elapsedSec > duration {
		return 0, false
	}
	return w.MaxUsers, true
}

func linearTarget(w config.Workload, elapsedSec int64) (int, bool) {
	duration := seconds(w.Duration)
	rampUp := seconds(w.RampUp)

	if elapsedSec > duration {
		return 0, false
	}
	if rampUp <= 0 {
		// Linear with RampUp == 0 degenerates to Constant.
		return w.MaxUsers, true
	}
	if elapsedSec > rampUp {
		return w.MaxUsers, true
	}

	v := int((elapsedSec * int64(w.MaxUsers)) / rampUp)
	if v < 1 {
		v = 1
	}
	return v, true
}

func easeOutTarget(w config.Workload, elapsedSec int64) (int, bool) {
	duration := seconds(w.Duration)
	rampUp := seconds(w.RampUp)

	if elapsedSec > duration {
		return 0, false
	}
	if rampUp <= 0 {
		// EaseOut with RampUp == 0 degenerates to Constant.
		return w.MaxUsers, true
	}
	if elapsedSec > rampUp {
		return w.MaxUsers, true
	}

	ratio := float64(elapsedSec) / float64(rampUp)
	v := int(math.Ceil(float64(w.MaxUsers) * (1 - (1-ratio)*(1-ratio))))
	if v < 1 {
		v = 1
	}
	return v, true
}

func sinTarget(w config.Workload, elapsedSec int64) (int, bool) {
	duration := seconds(w.Duration)
	if elapsedSec > duration {
		return 0, false
	}

	cycle := seconds(w.CycleTime)
	if cycle <= 0 {
		cycle = 1
	}

	amplitude := float64(w.MaxUsers - w.MinUsers)
	phase := 2*math.Pi*float64(elapsedSec)/float64(cycle) - math.Pi/2
	v := float64(w.MinUsers) + math.Floor(amplitude*(1+math.Sin(phase))/2)
	return int(v), true
}
