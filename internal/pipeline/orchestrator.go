// Package pipeline sequences the recovery cascade for one upload: dispatch
// by type, geometric symbol search, OCR fallback, text-layer scan and the
// manual crop hand-off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/document"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr"
	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
	"github.com/joseph-ayodele/tracking-recovery/internal/symbol"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// Searcher finds a symbol in a raster. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, img *raster.Image, accept func(string) bool) (symbol.Outcome, error)
}

// HEICConverter turns HEIC/HEIF bytes into PNG bytes.
type HEICConverter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

type Options struct {
	MaxPages      int
	RasterScales  []float64 // tried per page, highest fidelity first
	FallbackScale float64   // page 1 raster offered for manual crop
	PageTimeout   time.Duration
	SearchTimeout time.Duration // per raster scale, bounded by the page deadline
	OCRTimeout    time.Duration // for the first-scale OCR pair
	RunTimeout    time.Duration
	Languages     []string
	Ink           raster.ColorPredicate // colour isolated before OCR
}

func DefaultOptions() Options {
	return Options{
		MaxPages:      5,
		RasterScales:  []float64{5, 4, 3, 2},
		FallbackScale: 2,
		PageTimeout:   60 * time.Second,
		SearchTimeout: 12 * time.Second,
		OCRTimeout:    30 * time.Second,
		RunTimeout:    3 * time.Minute,
		Languages:     ocr.DefaultLanguages,
		Ink:           raster.IsMagenta,
	}
}

type Orchestrator struct {
	search Searcher
	ocr    ocr.Engine
	docs   document.Opener
	heic   HEICConverter
	opts   Options
	logger *slog.Logger
}

type Option func(*Orchestrator)

func WithOptions(o Options) Option {
	return func(p *Orchestrator) { p.opts = o }
}

func WithHEIC(c HEICConverter) Option {
	return func(p *Orchestrator) { p.heic = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Orchestrator) {
		if l != nil {
			p.logger = l
		}
	}
}

// New wires the orchestrator. ocrEngine and docs may be nil, which disables
// the OCR fallback and paginated documents respectively.
func New(engine Searcher, ocrEngine ocr.Engine, docs document.Opener, opts ...Option) *Orchestrator {
	p := &Orchestrator{
		search: engine,
		ocr:    ocrEngine,
		docs:   docs,
		opts:   DefaultOptions(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run recovers a tracking id from one upload. It always returns exactly one
// Result; internal faults are reported as Failure.
func (p *Orchestrator) Run(ctx context.Context, data []byte, mimeType string, cfg trackingid.Config) (res Result) {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	logger := p.logger.With("run_id", runID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", "panic", r, "stack", string(debug.Stack()))
			res = Failure(MsgInternalError)
		}
		logger.Info("pipeline finished",
			"kind", res.Kind,
			"source", res.Source,
			"code", res.Code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	ctx, cancel := common.WithTimeout(ctx, p.opts.RunTimeout)
	defer cancel()
	cfg = cfg.Normalized()

	mimeType = constants.NormalizeMime(mimeType)
	if mimeType == "" || mimeType == constants.MimeOctetStream {
		mimeType = constants.SniffMime(data)
	}
	format := constants.FormatOf(mimeType)
	logger.Debug("dispatch", "mime_type", mimeType, "format", format, "bytes", len(data))

	switch format {
	case constants.IMAGE:
		return p.runImage(ctx, logger, data, cfg)
	case constants.HEIC:
		if p.heic == nil {
			return Failure(MsgUnsupported)
		}
		png, err := p.heic.Convert(ctx, data)
		if err != nil {
			logger.Error("heic conversion failed", "code", common.CodeOf(err), "error", err)
			return p.interrupted(ctx, MsgUnreadable)
		}
		return p.runImage(ctx, logger, png, cfg)
	case constants.PDF:
		if p.docs == nil {
			return Failure(MsgUnsupported)
		}
		return p.runDocument(ctx, logger, data, cfg)
	default:
		logger.Warn("unsupported upload", "mime_type", mimeType)
		return Failure(MsgUnsupported)
	}
}

func (p *Orchestrator) runImage(ctx context.Context, logger *slog.Logger, data []byte, cfg trackingid.Config) Result {
	img, err := raster.DecodeBytes(data)
	if err != nil {
		logger.Warn("image decode failed", "error", err)
		return Failure(MsgUnreadable)
	}
	id, ok, err := p.searchWithin(ctx, ctx, logger, img, cfg)
	if err != nil {
		return p.interrupted(ctx, MsgInternalError)
	}
	if ok {
		return Success(id, SourceSymbol)
	}
	return NeedsManualCrop(session.New(img), MsgManualCrop)
}

func (p *Orchestrator) runDocument(ctx context.Context, logger *slog.Logger, data []byte, cfg trackingid.Config) Result {
	src, err := p.docs.Open(ctx, data)
	if err != nil {
		logger.Warn("document open failed", "code", common.CodeOf(err), "error", err)
		return p.interrupted(ctx, MsgUnreadable)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("document close failed", "error", err)
		}
	}()

	pages := min(src.PageCount(), p.opts.MaxPages)
	logger.Debug("document opened", "pages", src.PageCount(), "scanned_pages", pages)

	for page := 0; page < pages; page++ {
		if ctx.Err() != nil {
			return p.interrupted(ctx, MsgInternalError)
		}
		id, source, err := p.scanPage(ctx, logger.With("page", page+1), src, page, cfg)
		if id != "" {
			logger.Info("tracking id found", "page", page+1, "source", source)
			return Success(id, source)
		}
		if err != nil {
			if ctx.Err() != nil {
				return p.interrupted(ctx, MsgInternalError)
			}
			logger.Warn("page aborted", "page", page+1, "code", common.CodeOf(err), "error", err)
		}
	}

	for page := 0; page < pages; page++ {
		text, err := src.PageText(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return p.interrupted(ctx, MsgInternalError)
			}
			logger.Warn("text layer unreadable", "page", page+1, "error", err)
			continue
		}
		if id, ok := trackingid.Extract(text, cfg); ok {
			logger.Info("tracking id found", "page", page+1, "source", SourceTextLayer)
			return Success(id, SourceTextLayer)
		}
	}

	img, err := src.RasterizePage(ctx, 0, p.opts.FallbackScale)
	if err != nil {
		logger.Warn("fallback raster failed", "code", common.CodeOf(err), "error", err)
		return p.interrupted(ctx, MsgUnreadable)
	}
	return NeedsManualCrop(session.New(img), MsgManualCrop)
}

// scanPage runs the raster cascade for one page. The page deadline bounds
// rasterization and every search, and each scale's search has its own
// budget; running out of either is a miss, so the first-scale OCR pair still
// runs under its own deadline. Any other error aborts this page only.
func (p *Orchestrator) scanPage(ctx context.Context, logger *slog.Logger, src document.Source, page int, cfg trackingid.Config) (string, string, error) {
	pageCtx, cancel := common.WithTimeout(ctx, p.opts.PageTimeout)
	defer cancel()

	for i, scale := range p.opts.RasterScales {
		if err := pageCtx.Err(); err != nil {
			return "", "", fmt.Errorf("page deadline before scale %g: %w",
				scale, common.NewAppError(common.CodeTimeout, "page", err))
		}
		img, err := src.RasterizePage(pageCtx, page, scale)
		if err != nil {
			return "", "", fmt.Errorf("rasterize at scale %g: %w", scale, err)
		}
		id, ok, err := p.searchWithin(ctx, pageCtx, logger.With("scale", scale), img, cfg)
		if err != nil {
			return "", "", err
		}
		if ok {
			return id, SourceSymbol, nil
		}
		if i > 0 || p.ocr == nil {
			continue
		}
		id, ok, err = p.ocrPair(ctx, logger, img, cfg)
		if err != nil {
			return "", "", err
		}
		if ok {
			return id, SourceOCR, nil
		}
	}
	return "", "", nil
}

// searchWithin runs one search under SearchTimeout, nested in budget.
// Exhausting either is reported as a miss; only errors of the run context
// ctx are returned.
func (p *Orchestrator) searchWithin(ctx, budget context.Context, logger *slog.Logger, img *raster.Image, cfg trackingid.Config) (string, bool, error) {
	sctx, cancel := common.WithTimeout(budget, p.opts.SearchTimeout)
	defer cancel()
	id, ok, err := p.searchID(sctx, img, cfg)
	if err != nil && ctx.Err() == nil && sctx.Err() != nil {
		logger.Info("search budget exhausted",
			"width", img.Width(),
			"height", img.Height(),
			"code", common.CodeTimeout,
		)
		return "", false, nil
	}
	return id, ok, err
}

// ocrPair reads the ink-isolated raster, then the raster itself, under
// OCRTimeout. The deadline is taken from the run context so a spent page
// budget does not starve OCR.
func (p *Orchestrator) ocrPair(ctx context.Context, logger *slog.Logger, img *raster.Image, cfg trackingid.Config) (string, bool, error) {
	octx, cancel := common.WithTimeout(ctx, p.opts.OCRTimeout)
	defer cancel()
	for _, m := range []*raster.Image{raster.ColorMask(img, p.ink()), img} {
		id, ok, err := p.ocrID(octx, m, cfg)
		if err != nil {
			if ctx.Err() == nil && octx.Err() != nil {
				logger.Info("ocr budget exhausted", "code", common.CodeTimeout)
				return "", false, nil
			}
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (p *Orchestrator) searchID(ctx context.Context, img *raster.Image, cfg trackingid.Config) (string, bool, error) {
	accept := func(text string) bool { return trackingid.Matches(text, cfg) }
	out, err := p.search.Search(ctx, img, accept)
	if err != nil || !out.Found {
		return "", false, err
	}
	id, ok := trackingid.Extract(out.Text, cfg)
	return id, ok, nil
}

func (p *Orchestrator) ocrID(ctx context.Context, img *raster.Image, cfg trackingid.Config) (string, bool, error) {
	text, err := p.ocr.RecognizeText(ctx, img.Std(), p.opts.Languages)
	if err != nil {
		return "", false, fmt.Errorf("ocr: %w", err)
	}
	id, ok := trackingid.Extract(ocr.Normalize(text), cfg)
	return id, ok, nil
}

func (p *Orchestrator) ink() raster.ColorPredicate {
	if p.opts.Ink != nil {
		return p.opts.Ink
	}
	return raster.IsMagenta
}

// interrupted turns a run-level context error into its Failure, or returns
// the fallback message when the context is still live.
func (p *Orchestrator) interrupted(ctx context.Context, fallback string) Result {
	switch err := ctx.Err(); {
	case errors.Is(err, context.DeadlineExceeded):
		return Failure(MsgTimeout)
	case errors.Is(err, context.Canceled):
		return Failure(MsgCancelled)
	default:
		return Failure(fallback)
	}
}
