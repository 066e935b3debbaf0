// Package symbol adapts barcode and 2D symbol decoding to the recovery
// pipeline. A failed decode is an Outcome, never an error.
package symbol

import "image"

// Outcome is the result of one decode attempt.
type Outcome struct {
	Found bool
	Text  string
}

// NotFound is the soft-miss outcome.
var NotFound = Outcome{}

// Decoded wraps a successful payload.
func Decoded(text string) Outcome {
	return Outcome{Found: true, Text: text}
}

// Decoder tries every enabled symbology on img and reports the first payload.
// Implementations must not panic and must not try extra scales or rotations.
type Decoder interface {
	Decode(img image.Image) Outcome
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(img image.Image) Outcome

func (f DecoderFunc) Decode(img image.Image) Outcome { return f(img) }
