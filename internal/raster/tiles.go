package raster

import (
	"image"
	"math"
)

// DefaultOverlap is the share of a tile's size added on every side.
const DefaultOverlap = 0.10

// Tiles partitions bounds into a grid×grid layout in row-major order. Each
// tile is grown by overlap×tile size on every side and clamped to bounds so
// a symbol sitting on a cut line is still whole in at least one tile.
func Tiles(bounds image.Rectangle, grid int, overlap float64) []image.Rectangle {
	if grid < 1 || bounds.Empty() {
		return nil
	}
	tw := float64(bounds.Dx()) / float64(grid)
	th := float64(bounds.Dy()) / float64(grid)
	padX := overlap * tw
	padY := overlap * th

	tiles := make([]image.Rectangle, 0, grid*grid)
	for row := 0; row < grid; row++ {
		for col := 0; col < grid; col++ {
			x0 := float64(bounds.Min.X) + float64(col)*tw - padX
			y0 := float64(bounds.Min.Y) + float64(row)*th - padY
			x1 := float64(bounds.Min.X) + float64(col+1)*tw + padX
			y1 := float64(bounds.Min.Y) + float64(row+1)*th + padY
			r := image.Rect(
				int(math.Floor(x0)), int(math.Floor(y0)),
				int(math.Ceil(x1)), int(math.Ceil(y1)),
			).Intersect(bounds)
			if !r.Empty() {
				tiles = append(tiles, r)
			}
		}
	}
	return tiles
}
