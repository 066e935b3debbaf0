// Package inbox runs the recovery pipeline over files dropped into a watched
// directory.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/async"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/export"
	"github.com/joseph-ayodele/tracking-recovery/internal/ingest"
	"github.com/joseph-ayodele/tracking-recovery/internal/pipeline"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
	"github.com/joseph-ayodele/tracking-recovery/internal/settings"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// Pipeline is the part of *pipeline.Orchestrator the inbox needs.
type Pipeline interface {
	Run(ctx context.Context, data []byte, mimeType string, cfg trackingid.Config) pipeline.Result
}

// Processor is an async.Handler. Manual crop sessions are parked in the
// session store so a client can finish them over gRPC.
type Processor struct {
	Pipeline Pipeline
	Settings settings.Loader
	Sessions session.Store  // optional
	Report   *export.Report // optional
	Dedup    *ingest.Dedup  // optional
	MaxBytes int64
	Logger   *slog.Logger
}

var _ async.Handler = (*Processor)(nil)

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Processor) Handle(ctx context.Context, job async.Job) error {
	ctx = common.WithRequestID(ctx, job.ID.String())
	logger := p.logger().With("job_id", job.ID, "path", job.Path)
	start := time.Now()

	up, err := ingest.ReadFile(job.Path, p.MaxBytes)
	if err != nil {
		p.record(export.Row{File: job.Path, Kind: constants.ResultFailure, Message: err.Error(), Code: common.CodeOf(err)})
		return fmt.Errorf("read %s: %w", job.Path, err)
	}
	if p.Dedup != nil && !job.Force {
		if prev, dup := p.Dedup.Seen(up.HashHex, up.Path); dup {
			logger.Info("duplicate content skipped", "first_path", prev)
			return nil
		}
	}

	cfg, err := p.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	res := p.Pipeline.Run(ctx, up.Data, up.MimeType, cfg)
	row := export.Row{
		File:       up.Path,
		Kind:       res.Kind,
		TrackingID: res.TrackingID,
		Source:     res.Source,
		Message:    res.Message,
		Code:       res.Code,
		Duration:   time.Since(start),
	}

	if res.Kind == constants.ResultNeedsManualCrop && res.Session != nil && p.Sessions != nil {
		if err := p.Sessions.Put(ctx, res.Session); err != nil {
			logger.Error("session store failed", "error", err)
		} else {
			row.Message = fmt.Sprintf("%s (session %s)", res.Message, res.Session.ID)
			logger.Info("manual crop pending", "session_id", res.Session.ID)
		}
	}
	p.record(row)

	switch res.Kind {
	case constants.ResultSuccess:
		logger.Info("tracking id recovered", "tracking_id", res.TrackingID, "source", res.Source)
	case constants.ResultFailure:
		logger.Warn("recovery failed", "code", res.Code, "message", res.Message)
	}
	return nil
}

func (p *Processor) record(row export.Row) {
	if p.Report != nil {
		p.Report.Add(row)
	}
}

// Feed enqueues every path from events until the channel closes or ctx ends.
func Feed(ctx context.Context, q async.Queue, events <-chan string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			if err := q.Enqueue(ctx, async.NewJob(path)); err != nil {
				logger.Warn("enqueue failed", "path", path, "error", err)
			}
		}
	}
}
