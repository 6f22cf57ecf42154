package report

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/sosnowski/swarm/internal/aggregator"
)

var (
	headerColor = color.New(color.Bold, color.FgCyan)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.Bold, color.FgRed)
)

// buildLines renders one frame's worth of output lines from a RunStats
// snapshot. Endpoints are sorted by id for stable, diffable frames.
func buildLines(stats aggregator.RunStats) []string {
	lines := make([]string, 0, len(stats.Endpoints)+4)

	lines = append(lines, headerColor.Sprintf("swarm  users=%d  elapsed=%ds  failed_users=%s",
		stats.CurrentUsers, stats.ElapsedSeconds, failedUsersText(stats.FailedUsers)))

	ids := make([]string, 0, len(stats.Endpoints))
	for id := range stats.Endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		lines = append(lines, "  (no requests completed yet)")
		return lines
	}

	for _, id := range ids {
		ep := stats.Endpoints[id]
		lines = append(lines, endpointLine(ep))
		if len(ep.ErrorKinds) > 0 {
			lines = append(lines, errorKindsLine(ep))
		}
	}

	return lines
}

func failedUsersText(n int) string {
	if n == 0 {
		return okColor.Sprint("0")
	}
	return errColor.Sprintf("%d", n)
}

func endpointLine(ep aggregator.EndpointReport) string {
	errRate := errorRate(ep)
	rateText := okColor.Sprintf("%.1f%%", errRate*100)
	if errRate > 0.10 {
		rateText = errColor.Sprintf("%.1f%%", errRate*100)
	} else if errRate > 0 {
		rateText = warnColor.Sprintf("%.1f%%", errRate*100)
	}

	return fmt.Sprintf("  %-40s requests=%-8d errors=%-8s avg=%-6dms median=%-8.1fms p95=%-6dms p99=%-6dms",
		ep.ID, ep.Requests, rateText, ep.Stats.Average, ep.Stats.Median, ep.Stats.P95, ep.Stats.P99)
}

func errorRate(ep aggregator.EndpointReport) float64 {
	if ep.Requests == 0 {
		return 0
	}
	return float64(ep.Errors) / float64(ep.Requests)
}

func errorKindsLine(ep aggregator.EndpointReport) string {
	kinds := make([]string, 0, len(ep.ErrorKinds))
	for k := range ep.ErrorKinds {
		kinds = append(kinds, k.String())
	}
	sort.Strings(kinds)

	s := "    " + errColor.Sprint("errors:")
	for _, name := range kinds {
		for k, count := range ep.ErrorKinds {
			if k.String() == name {
				s += fmt.Sprintf(" %s=%d", name, count)
			}
		}
	}
	return s
}
