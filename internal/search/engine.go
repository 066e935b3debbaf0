// Package search looks for a decodable symbol anywhere in an image by
// walking a fixed, ordered space of renderings and stopping at the first hit.
package search

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
	"github.com/joseph-ayodele/tracking-recovery/internal/symbol"
)

// Options bound the search space.
type Options struct {
	Scales        []float64 // whole-image sweep
	TileScales    []float64 // per-tile sweep
	Angles        []int
	Grids         []int
	Overlap       float64
	MaxCandidates int // geometric candidates per search, 0 for no limit
	MaxPixels     int // renderings larger than this and the source are skipped, 0 for no limit
	Workers       int // >1 races sweep candidates in batches
}

// DefaultMaxPixels keeps one NRGBA rendering under roughly 100 MB.
const DefaultMaxPixels = 24_000_000

func DefaultOptions() Options {
	return Options{
		Scales:     []float64{1, 1.5, 2, 3, 4},
		TileScales: []float64{1, 1.5, 2, 3},
		Angles:     []int{0, 90, 180, 270},
		Grids:      []int{2, 3},
		Overlap:    raster.DefaultOverlap,
		MaxPixels:  DefaultMaxPixels,
		Workers:    1,
	}
}

type Engine struct {
	decoder symbol.Decoder
	opts    Options
	logger  *slog.Logger

	traceMu sync.Mutex
	trace   func(Candidate)
}

type Option func(*Engine)

func WithOptions(o Options) Option {
	return func(e *Engine) { e.opts = o }
}

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.opts.Workers = n
		}
	}
}

func WithMaxCandidates(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.opts.MaxCandidates = n
		}
	}
}

func WithMaxPixels(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.opts.MaxPixels = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace installs a hook called before every decode attempt. With more
// than one worker the hook is serialized but its call order is not canonical.
func WithTrace(fn func(Candidate)) Option {
	return func(e *Engine) { e.trace = fn }
}

func New(decoder symbol.Decoder, opts ...Option) *Engine {
	e := &Engine{
		decoder: decoder,
		opts:    DefaultOptions(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search returns the first accepted decode of img. accept may be nil; a
// decode it rejects counts as a miss. The only errors are ctx errors.
func (e *Engine) Search(ctx context.Context, img *raster.Image, accept func(string) bool) (symbol.Outcome, error) {
	start := time.Now()
	var calls, oversize atomic.Int64
	s := &run{engine: e, src: img, accept: accept, calls: &calls, oversize: &oversize}

	plan := e.Plan(img.Bounds())
	if limit := e.opts.MaxCandidates; limit > 0 && len(plan) > limit {
		e.logger.Warn("candidate budget below search space", "candidates", len(plan), "max_candidates", limit)
		plan = plan[:limit]
	}

	out, idx, err := s.walk(ctx, plan)
	switch {
	case err != nil:
		e.logger.Debug("search aborted", "error", err, "decode_calls", calls.Load())
		return symbol.NotFound, err
	case out.Found:
		e.logger.Debug("symbol found", "candidate", plan[idx].String(), "decode_calls", calls.Load(),
			"duration_ms", time.Since(start).Milliseconds())
		return out, nil
	default:
		e.logger.Debug("search exhausted", "candidates", len(plan), "decode_calls", calls.Load(),
			"oversize_skipped", oversize.Load(), "duration_ms", time.Since(start).Milliseconds())
		return symbol.NotFound, nil
	}
}

type run struct {
	engine   *Engine
	src      *raster.Image
	accept   func(string) bool
	calls    *atomic.Int64
	oversize *atomic.Int64
}

// walk evaluates the plan and returns the winning outcome and its index.
// The first candidate (the unmodified image) is always tried alone.
func (s *run) walk(ctx context.Context, plan []Candidate) (symbol.Outcome, int, error) {
	if len(plan) == 0 {
		return symbol.NotFound, -1, nil
	}
	if out, err := s.try(ctx, plan[0], nil); err != nil || out.Found {
		return out, 0, err
	}

	rest := plan[1:]
	workers := s.engine.opts.Workers
	if workers <= 1 {
		for _, c := range rest {
			out, err := s.try(ctx, c, nil)
			if err != nil || out.Found {
				return out, c.Index, err
			}
		}
		return symbol.NotFound, -1, nil
	}

	for lo := 0; lo < len(rest); lo += workers {
		batch := rest[lo:min(lo+workers, len(rest))]
		out, i, err := s.race(ctx, batch)
		if err != nil || out.Found {
			return out, batch[max(i, 0)].Index, err
		}
	}
	return symbol.NotFound, -1, nil
}

// race evaluates a batch concurrently. The lowest-index success wins, which
// matches what a sequential walk over the batch would return.
func (s *run) race(ctx context.Context, batch []Candidate) (symbol.Outcome, int, error) {
	results := make([]symbol.Outcome, len(batch))
	var best atomic.Int64
	best.Store(int64(len(batch)))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range batch {
		g.Go(func() error {
			superseded := func() bool { return best.Load() < int64(i) }
			out, err := s.try(gctx, c, superseded)
			if err != nil {
				return err
			}
			if out.Found {
				results[i] = out
				for {
					cur := best.Load()
					if int64(i) >= cur || best.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return symbol.NotFound, -1, err
	}
	if b := int(best.Load()); b < len(batch) {
		return results[b], b, nil
	}
	return symbol.NotFound, -1, nil
}

// try decodes the base rendering of c, then its preprocessing variants.
func (s *run) try(ctx context.Context, c Candidate, superseded func() bool) (symbol.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return symbol.NotFound, err
	}
	if limit := s.engine.opts.MaxPixels; limit > 0 {
		if px := c.Pixels(s.src.Bounds()); px > limit && px > s.src.Width()*s.src.Height() {
			s.oversize.Add(1)
			s.engine.logger.Debug("skip candidate", "candidate", c.String(), "pixels", px, "max_pixels", limit)
			return symbol.NotFound, nil
		}
	}
	base, err := render(s.src, c)
	if err != nil {
		s.engine.logger.Debug("skip candidate", "candidate", c.String(), "error", err)
		return symbol.NotFound, nil
	}
	for name, m := range renderings(base) {
		if err := ctx.Err(); err != nil {
			return symbol.NotFound, err
		}
		if superseded != nil && superseded() {
			return symbol.NotFound, nil
		}
		c.Variant = name
		s.engine.emit(c)
		s.calls.Add(1)
		out := s.engine.decoder.Decode(m.Std())
		if out.Found && (s.accept == nil || s.accept(out.Text)) {
			return out, nil
		}
	}
	return symbol.NotFound, nil
}

func (e *Engine) emit(c Candidate) {
	if e.trace == nil {
		return
	}
	e.traceMu.Lock()
	defer e.traceMu.Unlock()
	e.trace(c)
}

// renderings yields the base image followed by its preprocessing variants.
// Variants are only computed once the direct attempt has missed.
func renderings(base *raster.Image) iter.Seq2[string, *raster.Image] {
	return func(yield func(string, *raster.Image) bool) {
		if !yield("direct", base) {
			return
		}
		for name, v := range raster.Variants(base) {
			if !yield(name, v) {
				return
			}
		}
	}
}
