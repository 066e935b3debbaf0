package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ThresholdLevels are the binarization cuts tried by Variants, lowest first.
var ThresholdLevels = []uint8{120, 140, 160, 180}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// Scale resamples with nearest neighbour. Smoothing would soften the module
// edges symbol decoders depend on.
func Scale(m *Image, factor float64) *Image {
	if factor == 1 || factor <= 0 {
		return m
	}
	w := max(1, int(math.Round(float64(m.Width())*factor)))
	h := max(1, int(math.Round(float64(m.Height())*factor)))
	return wrap(imaging.Resize(m.pix, w, h, imaging.NearestNeighbor))
}

// Rotate turns the image clockwise by a multiple of 90 degrees, growing the
// canvas as a browser canvas rotation would.
func Rotate(m *Image, degrees int) (*Image, error) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return m, nil
	case 90:
		return wrap(imaging.Rotate270(m.pix)), nil
	case 180:
		return wrap(imaging.Rotate180(m.pix)), nil
	case 270:
		return wrap(imaging.Rotate90(m.pix)), nil
	default:
		return nil, fmt.Errorf("raster: unsupported rotation %d", degrees)
	}
}

// CropTile extracts r clamped to the image bounds.
func CropTile(m *Image, r image.Rectangle) (*Image, error) {
	r = r.Intersect(m.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("raster: crop %v outside %v", r, m.Bounds())
	}
	return wrap(imaging.Crop(m.pix, r)), nil
}

// ContrastStretch converts to luminance and linearly remaps the observed
// [min,max] intensity range onto [0,255].
func ContrastStretch(m *Image) *Image {
	gray := imaging.Grayscale(m.pix)
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(gray.Pix); i += 4 {
		v := gray.Pix[i]
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi <= lo {
		return wrap(gray)
	}
	span := float64(hi - lo)
	return wrap(imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := uint8(math.Round(float64(c.R-lo) * 255 / span))
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	}))
}

// Threshold binarizes on luminance: pixels brighter than level become white.
func Threshold(m *Image, level uint8) *Image {
	return wrap(imaging.AdjustFunc(m.pix, func(c color.NRGBA) color.NRGBA {
		if luminance(c) > level {
			return white
		}
		return black
	}))
}

// Invert is a full tonal inversion.
func Invert(m *Image) *Image {
	return wrap(imaging.Invert(m.pix))
}

// ColorPredicate selects pixels that belong to the ink of interest.
type ColorPredicate func(c color.NRGBA) bool

// ColorMask paints matching pixels black and everything else white, which
// lifts coloured ink off a busy background for OCR.
func ColorMask(m *Image, match ColorPredicate) *Image {
	return wrap(imaging.AdjustFunc(m.pix, func(c color.NRGBA) color.NRGBA {
		if c.A > 0 && match(c) {
			return black
		}
		return white
	}))
}

// IsMagenta matches saturated pink/purple stamp ink.
func IsMagenta(c color.NRGBA) bool {
	h, s, v := rgbToHSV(c.R, c.G, c.B)
	return h >= 280 && h <= 345 && s >= 0.25 && v >= 0.25
}

func luminance(c color.NRGBA) uint8 {
	return uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000)
}

// rgbToHSV returns hue in degrees [0,360) and saturation/value in [0,1].
func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC
	if maxC > 0 {
		s = diff / maxC
	}
	switch {
	case diff == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/diff, 6)
	case maxC == g:
		h = 60 * ((b-r)/diff + 2)
	default:
		h = 60 * ((r-g)/diff + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
