// Package session holds the state of a manual crop hand-off: the raster the
// user was shown and the one-shot claim on it.
package session

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
)

var (
	ErrNotFound = errors.New("session not found or expired")
	ErrUsed     = errors.New("session already used")
	ErrBadCrop  = errors.New("invalid crop rectangle")
)

// Session is a single-use manual crop offer.
type Session struct {
	ID        string
	Image     *raster.Image
	CreatedAt time.Time

	used atomic.Bool
}

func New(img *raster.Image) *Session {
	return &Session{ID: uuid.NewString(), Image: img, CreatedAt: time.Now().UTC()}
}

// Claim marks the session used. Only the first call returns true.
func (s *Session) Claim() bool {
	return s.used.CompareAndSwap(false, true)
}

// Rect is a rectangle in display pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Crop is a user selection together with the size of the surface it was
// drawn on. A zero Display means the image was shown at natural size.
type Crop struct {
	Rect          Rect
	DisplayWidth  float64
	DisplayHeight float64
}

// ToNatural maps the selection onto an image of the given natural size and
// intersects it with the image. A selection that starts left of or above
// the image keeps its visible part; only an empty intersection is rejected.
func (c Crop) ToNatural(natural image.Rectangle) (image.Rectangle, error) {
	r := c.Rect
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %+v", ErrBadCrop, r)
	}
	dw, dh := c.DisplayWidth, c.DisplayHeight
	if dw <= 0 || dh <= 0 {
		dw, dh = float64(natural.Dx()), float64(natural.Dy())
	}
	sx := float64(natural.Dx()) / dw
	sy := float64(natural.Dy()) / dh

	x0 := int(math.Round(r.X * sx))
	y0 := int(math.Round(r.Y * sy))
	out := image.Rect(x0, y0,
		x0+int(math.Round(r.Width*sx)),
		y0+int(math.Round(r.Height*sy)),
	).Add(natural.Min).Intersect(natural)
	if out.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: outside the image", ErrBadCrop)
	}
	return out, nil
}
