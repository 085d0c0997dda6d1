// Package stats keeps the resource and open-issue gauges current on a cron schedule.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/metrics"
)

// DefaultSpec refreshes once a minute.
const DefaultSpec = "@every 1m"

const refreshTimeout = 10 * time.Second

type ResourceCounter interface {
	CountLive(ctx context.Context) (int, error)
}

type IssueCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

// Refresher periodically counts live resources and open issues and publishes them.
type Refresher struct {
	cron      *cron.Cron
	resources ResourceCounter
	issues    IssueCounter
	logger    *zap.Logger
	// Publish receives each successful count; metrics.SetResourceCounts by default.
	Publish func(resources, openIssues int)
}

// NewRefresher validates spec and registers the refresh job. Call Start to run it.
func NewRefresher(spec string, resources ResourceCounter, issues IssueCounter, logger *zap.Logger) (*Refresher, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	r := &Refresher{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		resources: resources,
		issues:    issues,
		logger:    logger,
		Publish:   metrics.SetResourceCounts,
	}
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		r.Refresh(ctx)
	}); err != nil {
		return nil, fmt.Errorf("stats refresh spec %q: %w", spec, err)
	}
	return r, nil
}

// Refresh counts once and publishes the result. A failed count leaves the gauges untouched.
func (r *Refresher) Refresh(ctx context.Context) {
	resources, err := r.resources.CountLive(ctx)
	if err != nil {
		r.logger.Warn("stats: count resources", zap.Error(err))
		return
	}
	issues, err := r.issues.CountOpen(ctx)
	if err != nil {
		r.logger.Warn("stats: count open issues", zap.Error(err))
		return
	}
	r.Publish(resources, issues)
	r.logger.Debug("stats refreshed", zap.Int("resources", resources), zap.Int("open_issues", issues))
}

// Start refreshes immediately and then on schedule.
func (r *Refresher) Start(ctx context.Context) {
	r.Refresh(ctx)
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh, or for ctx to end.
func (r *Refresher) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
