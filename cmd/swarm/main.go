// Command swarm runs a single distributed HTTP load test: it spins up a
// population of virtual users per a workload shape, drives them against a
// templated request schedule, and renders live aggregated statistics to the
// terminal until the workload window closes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sosnowski/swarm/internal/aggregator"
	"github.com/sosnowski/swarm/internal/config"
	"github.com/sosnowski/swarm/internal/report"
	"github.com/sosnowski/swarm/internal/supervisor"
	"github.com/sosnowski/swarm/internal/swarmlog"
)

func main() {
	/* Load configuration */
	cfg := config.FromEnv(config.Default())

	runID := uuid.NewString()

	/* Initialize logging */
	logger, cleanup, err := swarmlog.New(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Sugar().Infof("run %s starting: shape=%d duration=%s max_users=%d",
		runID, cfg.Workload.Shape, cfg.Workload.Duration, cfg.Workload.MaxUsers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	/* Wire the pipeline: supervisor -> aggregator -> renderer */
	sup := supervisor.New(cfg.Workload, cfg.Schedule, logger)
	agg := aggregator.New(logger)
	renderer := report.New(agg, logger)

	aggDone := make(chan struct{})
	supErrCh := make(chan error, 1)
	aggErrCh := make(chan error, 1)

	go func() {
		supErrCh <- sup.Run(ctx)
	}()

	go func() {
		aggErrCh <- agg.Run(ctx, sup.Reports())
		close(aggDone)
	}()

	renderer.Run(ctx, aggDone)

	// The first fatal error from either task sets the process exit code,
	// per §6's exit-code contract; expected cancellation (ctx.Err() set by
	// our own signal handler) is not fatal.
	var fatal error
	if err := <-supErrCh; err != nil && ctx.Err() == nil && fatal == nil {
		fatal = fmt.Errorf("supervisor: %w", err)
	}
	if err := <-aggErrCh; err != nil && ctx.Err() == nil && fatal == nil {
		fatal = fmt.Errorf("aggregator: %w", err)
	}

	final := agg.Snapshot()
	logger.Sugar().Infof("run %s finished: elapsed=%ds failed_users=%d endpoints=%d",
		runID, final.ElapsedSeconds, final.FailedUsers, len(final.Endpoints))

	time.Sleep(50 * time.Millisecond) // let the final console frame flush before exit

	stop()
	if fatal != nil {
		logger.Sugar().Errorf("run %s exiting with error: %v", runID, fatal)
		cleanup()
		os.Exit(1)
	}
	cleanup()
}
