package workload

import (
	"testing"
	"time"

	"github.com/sosnowski/swarm/internal/config"
)

func TestConstantTarget(t *testing.T) {
	w := config.Workload{Shape: config.ShapeConstant, Duration: 2 * time.Second, MaxUsers: 5}

	for elapsed := int64(0); elapsed <= 2; elapsed++ {
		target, ok := computeTarget(w, elapsed)
		if !ok {
			t.Fatalf("elapsed=%d: expected ok=true", elapsed)
		}
		if target != 5 {
			t.Errorf("elapsed=%d: expected target=5, got %d", elapsed, target)
		}
	}

	if _, ok := computeTarget(w, 3); ok {
		t.Errorf("elapsed=3: expected latched (ok=false)")
	}
}

func TestConstantLatchesPermanently(t *testing.T) {
	w := config.Workload{Shape: config.ShapeConstant, Duration: time.Second, MaxUsers: 1}
	s := &Scheduler{workload: w, startedAt: time.Now().Add(-10 * time.Second)}

	for i := 0; i < 3; i++ {
		if _, ok := s.Next(); ok {
			t.Fatalf("call %d: expected latched scheduler to keep returning ok=false", i)
		}
	}
}

func TestLinearMonotonicAndBounds(t *testing.T) {
	w := config.Workload{Shape: config.ShapeLinear, Duration: 4 * time.Second, MaxUsers: 10, RampUp: 4 * time.Second}

	cases := []struct {
		elapsed int64
		want    int
	}{
		{0, 1}, // floored at 1 even though 0*10/4 == 0
		{1, 2},
		{2, 5},
		{4, 10},
	}
	for _, c := range cases {
		got, ok := computeTarget(w, c.elapsed)
		if !ok {
			t.Fatalf("elapsed=%d: expected ok=true", c.elapsed)
		}
		if got != c.want {
			t.Errorf("elapsed=%d: expected %d, got %d", c.elapsed, c.want, got)
		}
	}

	if _, ok := computeTarget(w, 5); ok {
		t.Errorf("elapsed=5: expected latched (ok=false)")
	}

	var prev int
	for elapsed := int64(0); elapsed <= 4; elapsed++ {
		got, _ := computeTarget(w, elapsed)
		if got < prev {
			t.Errorf("elapsed=%d: target %d is lower than previous %d, expected monotonic", elapsed, got, prev)
		}
		prev = got
	}
}

func TestLinearDegeneratesToConstantWhenRampUpZero(t *testing.T) {
	w := config.Workload{Shape: config.ShapeLinear, Duration: 3 * time.Second, MaxUsers: 7, RampUp: 0}

	for elapsed := int64(0); elapsed <= 3; elapsed++ {
		got, ok := computeTarget(w, elapsed)
		if !ok || got != 7 {
			t.Errorf("elapsed=%d: expected (7, true), got (%d, %v)", elapsed, got, ok)
		}
	}
}

func TestEaseOutFlooredAtOneAndReachesMax(t *testing.T) {
	w := config.Workload{Shape: config.ShapeEaseOut, Duration: 10 * time.Second, MaxUsers: 20, RampUp: 10 * time.Second}

	first, ok := computeTarget(w, 0)
	if !ok || first < 1 {
		t.Errorf("elapsed=0: expected floored at 1, got %d", first)
	}

	atRampEnd, ok := computeTarget(w, 10)
	if !ok || atRampEnd != 20 {
		t.Errorf("elapsed=10: expected 20, got %d", atRampEnd)
	}
}

func TestSinStaysWithinBounds(t *testing.T) {
	w := config.Workload{
		Shape:     config.ShapeSin,
		Duration:  20 * time.Second,
		MaxUsers:  10,
		MinUsers:  2,
		CycleTime: 8 * time.Second,
	}

	for elapsed := int64(0); elapsed <= 20; elapsed++ {
		got, ok := computeTarget(w, elapsed)
		if !ok {
			t.Fatalf("elapsed=%d: expected ok=true", elapsed)
		}
		if got < w.MinUsers || got > w.MaxUsers {
			t.Errorf("elapsed=%d: target %d outside [%d, %d]", elapsed, got, w.MinUsers, w.MaxUsers)
		}
	}

	startVal, _ := computeTarget(w, 0)
	if startVal != w.MinUsers {
		t.Errorf("elapsed=0: expected sin workload to start at MinUsers=%d, got %d", w.MinUsers, startVal)
	}

	if _, ok := computeTarget(w, 21); ok {
		t.Errorf("elapsed=21: expected latched (ok=false)")
	}
}
