// Package tesseract provides an in-process OCR engine backed by libtesseract
// through gosseract. It needs cgo; builds without it use ocr.CLIEngine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr"
)

// client is the slice of *gosseract.Client the engine uses.
type client interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetTessdataPrefix(prefix string) error
	Text() (string, error)
	Close() error
}

// Engine creates one gosseract client per call; clients are not safe for
// concurrent use.
type Engine struct {
	cfg           ocr.Config
	clientFactory func() client
}

func New(cfg ocr.Config) *Engine {
	return &Engine{
		cfg:           cfg,
		clientFactory: func() client { return gosseract.NewClient() },
	}
}

func (e *Engine) RecognizeText(ctx context.Context, img image.Image, langs []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(langs) == 0 {
		langs = e.cfg.Languages
	}
	if len(langs) == 0 {
		langs = ocr.DefaultLanguages
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode ocr input: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", common.NewAppError(common.CodeResource, "recognize text", err)
	}
	return text, nil
}
