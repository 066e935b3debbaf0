// Package raster holds the immutable raster image used by the recovery
// pipeline and the pure transforms applied to it before symbol decoding or OCR.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	// decoders for uploads
	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("raster: empty image")

// Image is an immutable RGBA raster. Transforms never modify the receiver;
// they return a new Image.
type Image struct {
	pix *image.NRGBA
}

// FromImage copies src into a new Image with its origin at (0,0).
func FromImage(src image.Image) (*Image, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return &Image{pix: imaging.Clone(src)}, nil
}

func wrap(p *image.NRGBA) *Image { return &Image{pix: p} }

// Decode reads an encoded raster (PNG, JPEG, GIF, BMP, TIFF, WebP).
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(src)
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte) (*Image, error) {
	return Decode(bytes.NewReader(b))
}

func (m *Image) Width() int  { return m.pix.Rect.Dx() }
func (m *Image) Height() int { return m.pix.Rect.Dy() }

// Bounds is always anchored at (0,0).
func (m *Image) Bounds() image.Rectangle { return m.pix.Rect }

// Std exposes the pixels as an image.Image for read-only consumers such as
// symbol decoders and OCR engines.
func (m *Image) Std() image.Image { return m.pix }

// PNG encodes the image losslessly.
func (m *Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.pix); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
