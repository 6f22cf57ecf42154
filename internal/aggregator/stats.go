package aggregator

import (
	"math"
	"sort"
)

// Stats is the set of derived latency statistics for one endpoint's
// duration frequency table, per spec §4.4.
type Stats struct {
	Average int64 // integer division; zero samples -> 0
	Median  float64
	P95     int64
	P99     int64
}

// deriveStats computes average/median/p95/p99 from a duration_ms -> count
// frequency table. Ties in the table are broken by the ordering of the
// keys themselves; an empty table yields all zeros.
func deriveStats(durations map[int64]int) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	keys := make([]int64, 0, len(durations))
	for k := range durations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var total, sum int64
	for _, k := range keys {
		c := int64(durations[k])
		total += c
		sum += k * c
	}
	if total == 0 {
		return Stats{}
	}

	// rankValue returns the duration at 1-indexed rank r (1 <= r <= total),
	// walking the ascending keys and their cumulative counts.
	rankValue := func(r int64) int64 {
		var cum int64
		for _, k := range keys {
			cum += int64(durations[k])
			if cum >= r {
				return k
			}
		}
		return keys[len(keys)-1]
	}

	var median float64
	if total%2 == 1 {
		median = float64(rankValue((total + 1) / 2))
	} else {
		lo := rankValue(total / 2)
		hi := rankValue(total/2 + 1)
		median = float64(lo+hi) / 2.0
	}

	p95Rank := ceilRank(0.95, total)
	p99Rank := ceilRank(0.99, total)

	return Stats{
		Average: sum / total,
		Median:  median,
		P95:     rankValue(p95Rank),
		P99:     rankValue(p99Rank),
	}
}

func ceilRank(fraction float64, total int64) int64 {
	r := int64(math.Ceil(fraction * float64(total)))
	if r < 1 {
		r = 1
	}
	return r
}
