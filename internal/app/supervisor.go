package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NodePath81/tlsping/internal/config"
	"github.com/NodePath81/tlsping/internal/console"
	"github.com/NodePath81/tlsping/internal/util"
)

// Supervisor owns one probe run: it tags the run with an id, drives the
// Runtime until the context ends and builds the final report.
type Supervisor struct {
	cfg     config.Config
	opts    Options
	console *console.Console
	logger  util.Logger
	runID   string
}

func NewSupervisor(cfg config.Config, opts Options, con *console.Console, logger util.Logger) *Supervisor {
	runID := uuid.New().String()
	return &Supervisor{
		cfg:     cfg,
		opts:    opts,
		console: con,
		logger:  logger.With("run", runID),
		runID:   runID,
	}
}

func (s *Supervisor) RunID() string {
	return s.runID
}

// Run blocks until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) console.Report {
	s.console.Banner(s.cfg.Banner())
	s.logger.Debug("probe started",
		"target", s.cfg.Addr(),
		"protocol", s.cfg.Protocol.VersionString(),
		"data_bytes", s.cfg.DataBytes(),
		"chunk_bytes", s.cfg.ChunkBytes())

	started := time.Now()
	tally := NewRuntime(s.cfg, s.opts, s.console, s.logger).Run(ctx)
	elapsed := time.Since(started)

	s.logger.Info("probe stopped",
		"attempts", tally.Attempts(),
		"successes", tally.Successes,
		"failures", tally.Failures,
		"elapsed", elapsed.Round(time.Millisecond))
	return console.NewReport(s.runID, s.cfg.Addr(), s.cfg.Protocol.VersionString(), started, elapsed, tally)
}
