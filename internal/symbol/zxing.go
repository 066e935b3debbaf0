package symbol

import (
	"image"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXing decodes QR, Data Matrix, Aztec and the common 1D families through
// gozxing. Readers keep internal state, so a fresh set is built per call and
// a ZXing value is safe for concurrent use.
type ZXing struct {
	logger *slog.Logger
}

func NewZXing(logger *slog.Logger) *ZXing {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZXing{logger: logger}
}

var decodeHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

func readers() []gozxing.Reader {
	return []gozxing.Reader{
		qrcode.NewQRCodeReader(),
		datamatrix.NewDataMatrixReader(),
		aztec.NewAztecReader(),
		oned.NewMultiFormatUPCEANReader(decodeHints),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewCode93Reader(),
		oned.NewITFReader(),
		oned.NewCodaBarReader(),
	}
}

func (z *ZXing) Decode(img image.Image) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			z.logger.Debug("symbol decoder panicked", "panic", r)
			out = NotFound
		}
	}()

	if img == nil || img.Bounds().Empty() {
		return NotFound
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		z.logger.Debug("binary bitmap failed", "error", err)
		return NotFound
	}
	for _, reader := range readers() {
		res, err := reader.Decode(bmp, decodeHints)
		if err != nil || res == nil {
			continue
		}
		if text := res.GetText(); text != "" {
			return Decoded(text)
		}
	}
	return NotFound
}
