package search

import (
	"fmt"
	"image"
	"math"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
)

// Candidate names one rendering handed to the symbol decoder. It is only
// used for tracing and logs.
type Candidate struct {
	Index   int             // position of the geometric candidate in the plan
	Scale   float64         // resample factor applied after cropping
	Angle   int             // clockwise rotation in degrees
	Grid    int             // 0 for the whole image, else the g of the g×g grid
	Tile    image.Rectangle // source rectangle when Grid > 0
	Variant string          // "direct" or a raster.Variants name
}

func (c Candidate) String() string {
	if c.Grid > 0 {
		return fmt.Sprintf("#%d grid=%d tile=%v scale=%g angle=%d %s", c.Index, c.Grid, c.Tile, c.Scale, c.Angle, c.Variant)
	}
	return fmt.Sprintf("#%d scale=%g angle=%d %s", c.Index, c.Scale, c.Angle, c.Variant)
}

// Pixels is the area of c's rendering for a source of the given bounds.
// Rotation by a multiple of 90 degrees does not change it.
func (c Candidate) Pixels(src image.Rectangle) int {
	r := src
	if c.Grid > 0 {
		r = c.Tile.Intersect(src)
	}
	if c.Scale == 1 || c.Scale <= 0 {
		return r.Dx() * r.Dy()
	}
	w := max(1, int(math.Round(float64(r.Dx())*c.Scale)))
	h := max(1, int(math.Round(float64(r.Dy())*c.Scale)))
	return w * h
}

// Plan enumerates the geometric candidates for an image of the given bounds
// in canonical order: the image itself, the scale × rotation sweep without
// the identity pair, then every tile of every grid in row-major order with
// the tile scale × rotation sweep.
func (e *Engine) Plan(bounds image.Rectangle) []Candidate {
	o := e.opts
	plan := []Candidate{{Scale: 1, Angle: 0}}
	for _, s := range o.Scales {
		for _, a := range o.Angles {
			if s == 1 && a == 0 {
				continue
			}
			plan = append(plan, Candidate{Scale: s, Angle: a})
		}
	}
	for _, g := range o.Grids {
		for _, tile := range raster.Tiles(bounds, g, o.Overlap) {
			for _, s := range o.TileScales {
				for _, a := range o.Angles {
					plan = append(plan, Candidate{Scale: s, Angle: a, Grid: g, Tile: tile})
				}
			}
		}
	}
	for i := range plan {
		plan[i].Index = i
	}
	return plan
}

// render produces the base image for c from the original.
func render(src *raster.Image, c Candidate) (*raster.Image, error) {
	m := src
	if c.Grid > 0 {
		var err error
		if m, err = raster.CropTile(src, c.Tile); err != nil {
			return nil, err
		}
	}
	return raster.Rotate(raster.Scale(m, c.Scale), c.Angle)
}
