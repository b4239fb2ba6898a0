package app

import (
	"context"
	"time"

	"github.com/NodePath81/tlsping/internal/config"
	"github.com/NodePath81/tlsping/internal/console"
	"github.com/NodePath81/tlsping/internal/metrics"
	"github.com/NodePath81/tlsping/internal/probe"
	"github.com/NodePath81/tlsping/internal/util"
)

// DefaultInterval is the pause between the end of one attempt and the start
// of the next.
const DefaultInterval = 500 * time.Millisecond

type AttemptFunc func(ctx context.Context) probe.Result

type Options struct {
	// Interval defaults to DefaultInterval when zero.
	Interval time.Duration
	// Attempt replaces the network attempt, mainly for tests.
	Attempt AttemptFunc
	// Now replaces the wall clock used for attempt timestamps.
	Now func() time.Time
}

// Runtime drives the probe loop for one resolved configuration.
type Runtime struct {
	console  *console.Console
	logger   util.Logger
	interval time.Duration
	attempt  AttemptFunc
	now      func() time.Time
	tally    metrics.Tally
}

func NewRuntime(cfg config.Config, opts Options, con *console.Console, logger util.Logger) *Runtime {
	rt := &Runtime{
		console:  con,
		logger:   logger,
		interval: opts.Interval,
		attempt:  opts.Attempt,
		now:      opts.Now,
	}
	if rt.interval <= 0 {
		rt.interval = DefaultInterval
	}
	if rt.now == nil {
		rt.now = time.Now
	}
	if rt.attempt == nil {
		target := probe.TargetFromConfig(cfg)
		dataBytes, chunkBytes := cfg.DataBytes(), cfg.ChunkBytes()
		rt.attempt = func(ctx context.Context) probe.Result {
			return probe.Attempt(ctx, target, dataBytes, chunkBytes, logger)
		}
	}
	return rt
}

// Run probes until ctx is canceled and returns the final tally. An attempt
// interrupted by cancellation is not counted.
func (r *Runtime) Run(ctx context.Context) metrics.Tally {
	for {
		if ctx.Err() != nil {
			return r.tally
		}
		if r.tally.SummaryDue() {
			r.console.Tally(r.tally)
		}

		r.console.AttemptStart(r.now())
		res := r.attempt(ctx)
		if ctx.Err() != nil && res.Canceled() {
			r.console.Interrupted()
			return r.tally
		}
		r.record(res)

		select {
		case <-ctx.Done():
			return r.tally
		case <-time.After(r.interval):
		}
	}
}

func (r *Runtime) record(res probe.Result) {
	r.tally.Record(res)
	if res.OK() {
		r.console.Success(res)
		if res.TCP != nil {
			r.logger.Debug("tcp stats",
				"rtt", res.TCP.RTT,
				"rttvar", res.TCP.RTTVar,
				"retransmits", res.TCP.Retransmits,
				"segments_sent", res.TCP.SegmentsSent)
		}
		return
	}
	r.console.Failure(res)
	r.logger.Debug("attempt failed",
		"stage", res.Stage.String(),
		"chunks_completed", res.Chunks,
		"error", res.Err)
}

// Tally returns the counters accumulated so far.
func (r *Runtime) Tally() metrics.Tally {
	return r.tally
}
