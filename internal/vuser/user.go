// Package vuser implements the virtual-user script interpreter: it walks
// one Schedule once, maintaining a per-user cookie store, dispatching
// templated HTTP requests through fasthttp, and classifying every outcome
// per spec §4.3.
package vuser

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sosnowski/swarm/internal/config"
)

// User executes one pass of a Schedule against a fresh HTTP client and
// fresh cookie store. The id field is never observed outside of logging —
// it plays no part in the aggregation or wire data model.
type User struct {
	id       uuid.UUID
	schedule config.Schedule
	client   *fasthttp.Client
	cookies  *CookieStore
	logger   *zap.Logger
}

// New constructs a User that will walk schedule exactly once when Run is
// called. Each User owns an independent fasthttp.Client and CookieStore,
// per spec §4.3 ("fresh HTTP client... fresh cookie store").
func New(schedule config.Schedule, logger *zap.Logger) *User {
	id := uuid.New()
	return &User{
		id:       id,
		schedule: schedule,
		client:   &fasthttp.Client{},
		cookies:  NewCookieStore(),
		logger:   logger.With(zap.String("user_id", id.String())),
	}
}

// Run walks the full schedule once, in order, returning the accumulated
// UserOutcome. On an unrecoverable interpreter error (malformed URL
// template, unbuildable request) it returns immediately with Err and no
// partial results, per spec §4.3.
func (u *User) Run() UserOutcome {
	var results []TaskResult

	for _, task := range u.schedule.Tasks {
		switch {
		case task.Wait != nil:
			time.Sleep(*task.Wait)

		case task.Request != nil:
			taskResults, err := u.executeRequestTask(*task.Request)
			if err != nil {
				u.logger.Warn("aborting user: unrecoverable interpreter error", zap.Error(err))
				return UserOutcome{Err: err}
			}
			results = append(results, taskResults...)
		}
	}

	return UserOutcome{Results: results}
}

// executeRequestTask runs every repeat × RequestData combination for one
// Request task, in order, per spec §4.3.
func (u *User) executeRequestTask(details config.RequestDetails) ([]TaskResult, error) {
	repeat := details.Repeat
	if repeat <= 0 {
		repeat = 1
	}

	dataSets := details.Data
	if len(dataSets) == 0 {
		dataSets = []config.RequestData{{}}
	}

	id := details.URL
	results := make([]TaskResult, 0, repeat*len(dataSets))

	for i := 0; i < repeat; i++ {
		for _, data := range dataSets {
			targetURL, err := buildTargetURL(details, data)
			if err != nil {
				return nil, fmt.Errorf("build request for %s: %w", id, err)
			}

			result := dispatchOnce(u.client, u.cookies, id, targetURL, details.Method, data)
			u.logger.Debug("task result",
				zap.String("id", result.ID),
				zap.Int64("duration_ms", result.DurationMS),
				zap.Bool("error", result.Error),
				zap.Stringer("error_kind", result.ErrorKind),
			)
			results = append(results, result)
		}
	}

	return results, nil
}
