package pipeline

import (
	"context"
	"time"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// SubmitCrop re-enters the cascade on the user's selection only: symbol
// search on the cropped region, then OCR. A session answers one submission;
// a second call on the same session fails without searching.
func (p *Orchestrator) SubmitCrop(ctx context.Context, s *session.Session, crop session.Crop, cfg trackingid.Config) (res Result) {
	logger := p.logger
	if s != nil {
		logger = logger.With("session_id", s.ID)
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("crop panic", "panic", r)
			res = Failure(MsgInternalError)
		}
		logger.Info("crop finished", "kind", res.Kind, "source", res.Source, "code", res.Code,
			"duration_ms", time.Since(start).Milliseconds())
	}()

	if s == nil || s.Image == nil {
		return Failure(MsgSessionUsed)
	}
	if !s.Claim() {
		return Failure(MsgSessionUsed)
	}

	pageCtx, cancel := common.WithTimeout(ctx, p.opts.PageTimeout)
	defer cancel()
	cfg = cfg.Normalized()

	rect, err := crop.ToNatural(s.Image.Bounds())
	if err != nil {
		logger.Warn("bad crop", "error", err)
		return Failure(MsgBadCrop)
	}
	region, err := raster.CropTile(s.Image, rect)
	if err != nil {
		return Failure(MsgBadCrop)
	}
	logger.Debug("crop mapped", "rect", rect.String())

	id, ok, err := p.searchWithin(ctx, pageCtx, logger, region, cfg)
	if err != nil {
		return p.interrupted(ctx, MsgInternalError)
	}
	if ok {
		return Success(id, SourceSymbol)
	}

	if p.ocr != nil {
		octx, cancel := common.WithTimeout(ctx, p.opts.OCRTimeout)
		defer cancel()
		id, ok, err := p.ocrID(octx, region, cfg)
		if err != nil {
			logger.Warn("crop ocr failed", "code", common.CodeOf(err), "error", err)
			return p.interrupted(octx, MsgCropFailed)
		}
		if ok {
			return Success(id, SourceOCR)
		}
	}
	return Failure(MsgCropFailed)
}
