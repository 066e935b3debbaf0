package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/tracking-recovery/internal/runner"
)

// HEICConverter turns HEIC/HEIF uploads into PNG bytes with an external tool.
type HEICConverter struct {
	Converter string // "heif-convert" | "magick" | "sips"
	CacheDir  string // optional; converted PNGs are reused by content hash
	Runner    runner.Runner
	Logger    *slog.Logger
}

// Convert returns the PNG encoding of a HEIC/HEIF image.
func (c HEICConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := c.Runner
	if r == nil {
		r = runner.New(logger)
	}

	var cached string
	if c.CacheDir != "" {
		sum := sha256.Sum256(data)
		cached = filepath.Join(c.CacheDir, hex.EncodeToString(sum[:])+".png")
		if b, err := os.ReadFile(cached); err == nil {
			logger.Debug("using cached heic->png", "cache", cached)
			return b, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "tr-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "input.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	switch c.Converter {
	case "heif-convert":
		if _, errb, err := r.Run(ctx, "heif-convert", in, out); err != nil {
			return nil, fmt.Errorf("heif-convert failed: %w (%s)", err, runner.Truncate(string(errb), 256))
		}
	case "magick":
		if _, errb, err := r.Run(ctx, "magick", in, out); err != nil {
			return nil, fmt.Errorf("magick convert failed: %w (%s)", err, runner.Truncate(string(errb), 256))
		}
	case "sips":
		if _, errb, err := r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err != nil {
			return nil, fmt.Errorf("sips convert failed: %w (%s)", err, runner.Truncate(string(errb), 256))
		}
	default:
		return nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached != "" {
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			logger.Warn("heic cache unavailable", "dir", c.CacheDir, "error", err)
		} else if err := os.WriteFile(cached, png, 0o644); err != nil {
			logger.Warn("failed to cache heic->png", "cache", cached, "error", err)
		}
	}
	return png, nil
}
