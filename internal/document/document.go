// Package document reads paginated documents for the recovery pipeline:
// the embedded text layer of a page and page rasters at a given scale.
package document

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
)

var ErrPageRange = errors.New("document: page out of range")

// Source is one opened document. Page indices are zero-based.
type Source interface {
	PageCount() int
	// PageText returns the embedded text of a page, or "" when the page has
	// no text layer.
	PageText(ctx context.Context, page int) (string, error)
	// RasterizePage renders a page at scale × 72 dpi. It must be
	// deterministic for a given (document, page, scale).
	RasterizePage(ctx context.Context, page int, scale float64) (*raster.Image, error)
	Close() error
}

// Opener turns uploaded bytes into a Source.
type Opener interface {
	Open(ctx context.Context, data []byte) (Source, error)
}
