// Package ocr is the optical character recognition boundary of the recovery
// pipeline. Engines return raw text; callers normalise and extract.
package ocr

import (
	"context"
	"image"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/tracking-recovery/internal/runner"
)

// DefaultLanguages are the tesseract language packs used when a caller
// passes no hints.
var DefaultLanguages = []string{"eng"}

// Engine recognises text in an image. An image without text yields an empty
// string, not an error; errors mean the engine could not run at all.
type Engine interface {
	RecognizeText(ctx context.Context, img image.Image, langs []string) (string, error)
}

type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	Languages   []string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

func (c Config) withDefaults() Config {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if len(c.Languages) == 0 {
		c.Languages = DefaultLanguages
	}
	return c
}

// CLIEngine shells out to the tesseract binary.
type CLIEngine struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewCLIEngine(cfg Config, r runner.Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.New(logger)
	}
	return &CLIEngine{cfg: cfg.withDefaults(), runner: r, logger: logger}
}

// LanguageArg joins language hints the way tesseract expects them.
func LanguageArg(langs []string) string {
	return strings.Join(langs, "+")
}
