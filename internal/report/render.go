// Package report implements the terminal renderer: once a second it
// redraws the current aggregated view, erasing the prior frame, per spec
// §4.5. When stdout is not a TTY, erasing is a no-op and frames simply
// accumulate, per spec §6's terminal contract.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/sosnowski/swarm/internal/aggregator"
)

const tickInterval = time.Second

// Snapshotter is the read side of the aggregator the renderer depends on.
type Snapshotter interface {
	Snapshot() aggregator.RunStats
}

// Renderer redraws the current aggregated view on a fixed tick.
type Renderer struct {
	source Snapshotter
	logger *zap.Logger
	out    io.Writer
	isTTY  bool

	lastLineCount int
}

// New builds a Renderer writing to stdout.
func New(source Snapshotter, logger *zap.Logger) *Renderer {
	return &Renderer{
		source: source,
		logger: logger.Named("report"),
		out:    os.Stdout,
		isTTY:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// Run redraws a frame once per tick until done fires, at which point it
// renders one final frame and returns. It also returns early, with no
// final frame, if ctx is cancelled first.
func (r *Renderer) Run(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.renderFrame()

		case <-done:
			r.renderFrame()
			r.logger.Info("final report rendered")
			return

		case <-ctx.Done():
			return
		}
	}
}

func (r *Renderer) renderFrame() {
	stats := r.source.Snapshot()
	lines := buildLines(stats)

	r.clearPreviousFrame()
	for _, line := range lines {
		fmt.Fprintln(r.out, line)
	}
	r.lastLineCount = len(lines)
}

// clearPreviousFrame erases exactly the lines written by the previous
// frame using ANSI cursor-up + erase-line sequences. It is a no-op when
// stdout is not a TTY or there is no previous frame to erase.
func (r *Renderer) clearPreviousFrame() {
	if !r.isTTY || r.lastLineCount == 0 {
		return
	}
	for i := 0; i < r.lastLineCount; i++ {
		fmt.Fprint(r.out, "\x1b[1A\x1b[2K")
	}
}
