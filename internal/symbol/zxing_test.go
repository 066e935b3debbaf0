package symbol

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func qrImage(t *testing.T, text string, size int) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	return m
}

func TestZXingDecodesQR(t *testing.T) {
	want := "https://x/?id=ALF-20250101-AB12CD"
	got := NewZXing(nil).Decode(qrImage(t, want, 240))
	if !got.Found || got.Text != want {
		t.Fatalf("Decode = %+v, want %q", got, want)
	}
}

func TestZXingBlankIsNotFound(t *testing.T) {
	blank := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	draw.Draw(blank, blank.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if got := NewZXing(nil).Decode(blank); got != NotFound {
		t.Fatalf("Decode(blank) = %+v, want NotFound", got)
	}
}

func TestZXingNilImage(t *testing.T) {
	if got := NewZXing(nil).Decode(nil); got.Found {
		t.Fatalf("Decode(nil) = %+v", got)
	}
}

func TestDecoderFunc(t *testing.T) {
	var d Decoder = DecoderFunc(func(image.Image) Outcome { return Decoded("x") })
	if got := d.Decode(nil); got != Decoded("x") {
		t.Fatalf("got %+v", got)
	}
}
