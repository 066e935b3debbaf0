package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func solid(t *testing.T, w, h int, c color.NRGBA) *Image {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetNRGBA(x, y, c)
		}
	}
	m, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return m
}

func at(m *Image, x, y int) color.NRGBA {
	return m.pix.NRGBAAt(x, y)
}

func TestFromImageRejectsEmpty(t *testing.T) {
	if _, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 0))); err != ErrEmptyImage {
		t.Fatalf("err = %v, want ErrEmptyImage", err)
	}
}

func TestScale(t *testing.T) {
	m := solid(t, 3, 2, color.NRGBA{A: 255})
	if got := Scale(m, 1); got != m {
		t.Fatalf("factor 1 should pass the image through")
	}
	got := Scale(m, 1.5)
	if got.Width() != 5 || got.Height() != 3 {
		t.Fatalf("Scale(1.5) = %dx%d, want 5x3", got.Width(), got.Height())
	}
	if m.Width() != 3 {
		t.Fatalf("source mutated")
	}
}

func TestRotate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	red := color.NRGBA{R: 255, A: 255}
	src.SetNRGBA(0, 0, red)
	m, err := FromImage(src)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		angle      int
		w, h       int
		redX, redY int
	}{
		{0, 4, 2, 0, 0},
		{90, 2, 4, 1, 0},
		{180, 4, 2, 3, 1},
		{270, 2, 4, 0, 3},
	}
	for _, tt := range tests {
		got, err := Rotate(m, tt.angle)
		if err != nil {
			t.Fatalf("Rotate(%d): %v", tt.angle, err)
		}
		if got.Width() != tt.w || got.Height() != tt.h {
			t.Errorf("Rotate(%d) = %dx%d, want %dx%d", tt.angle, got.Width(), got.Height(), tt.w, tt.h)
			continue
		}
		if c := at(got, tt.redX, tt.redY); c != red {
			t.Errorf("Rotate(%d): corner pixel at (%d,%d) = %v", tt.angle, tt.redX, tt.redY, c)
		}
	}

	if _, err := Rotate(m, 45); err == nil {
		t.Fatalf("expected error for 45 degrees")
	}
}

func TestCropTile(t *testing.T) {
	m := solid(t, 10, 10, color.NRGBA{A: 255})
	got, err := CropTile(m, image.Rect(5, 5, 20, 20))
	if err != nil {
		t.Fatalf("CropTile: %v", err)
	}
	if got.Width() != 5 || got.Height() != 5 {
		t.Fatalf("clamped crop = %dx%d, want 5x5", got.Width(), got.Height())
	}
	if _, err := CropTile(m, image.Rect(20, 20, 30, 30)); err == nil {
		t.Fatalf("expected error for crop outside the image")
	}
}

func TestContrastStretch(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 150, G: 150, B: 150, A: 255})
	m, _ := FromImage(src)

	got := ContrastStretch(m)
	if lo, hi := at(got, 0, 0).R, at(got, 1, 0).R; lo != 0 || hi != 255 {
		t.Fatalf("stretched range = [%d,%d], want [0,255]", lo, hi)
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		gray  uint8
		level uint8
		want  uint8
	}{
		{150, 140, 255},
		{150, 160, 0},
		{140, 140, 0},
	}
	for _, tt := range tests {
		m := solid(t, 1, 1, color.NRGBA{R: tt.gray, G: tt.gray, B: tt.gray, A: 255})
		if got := at(Threshold(m, tt.level), 0, 0).R; got != tt.want {
			t.Errorf("Threshold(%d @ %d) = %d, want %d", tt.gray, tt.level, got, tt.want)
		}
	}
}

func TestVariantsOrder(t *testing.T) {
	m := solid(t, 4, 4, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	var names []string
	for name, v := range Variants(m) {
		if v == nil {
			t.Fatalf("variant %s is nil", name)
		}
		names = append(names, name)
	}
	want := []string{
		"stretch",
		"threshold_120", "threshold_120_inv",
		"threshold_140", "threshold_140_inv",
		"threshold_160", "threshold_160_inv",
		"threshold_180", "threshold_180_inv",
		"invert",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("variant order mismatch (-want +got):\n%s", diff)
	}
	if len(names) != VariantCount+1 {
		t.Fatalf("got %d renderings", len(names))
	}
}

func TestVariantsStopEarly(t *testing.T) {
	m := solid(t, 2, 2, color.NRGBA{A: 255})
	n := 0
	for range Variants(m) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("consumed %d variants, want 2", n)
	}
}

func TestColorMask(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 230, G: 20, B: 200, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	src.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	m, _ := FromImage(src)

	got := ColorMask(m, IsMagenta)
	want := []uint8{0, 255, 255}
	for x, w := range want {
		if c := at(got, x, 0); c.R != w {
			t.Errorf("pixel %d = %d, want %d", x, c.R, w)
		}
	}
}

func TestTilesCoverCentre(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	tiles := Tiles(bounds, 2, DefaultOverlap)

	want := []image.Rectangle{
		image.Rect(0, 0, 55, 55),
		image.Rect(45, 0, 100, 55),
		image.Rect(0, 45, 55, 100),
		image.Rect(45, 45, 100, 100),
	}
	if diff := cmp.Diff(want, tiles); diff != "" {
		t.Fatalf("tiles mismatch (-want +got):\n%s", diff)
	}

	centre := image.Pt(50, 50)
	covered := 0
	for _, r := range tiles {
		if centre.In(r) {
			covered++
		}
	}
	if covered < 2 {
		t.Fatalf("(50,50) covered by %d tiles, want at least 2", covered)
	}
}

func TestTilesThreeByThree(t *testing.T) {
	tiles := Tiles(image.Rect(0, 0, 90, 60), 3, DefaultOverlap)
	if len(tiles) != 9 {
		t.Fatalf("got %d tiles, want 9", len(tiles))
	}
	for _, r := range tiles {
		if !r.In(image.Rect(0, 0, 90, 60)) {
			t.Errorf("tile %v escapes bounds", r)
		}
	}
}
