package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/bootstrap"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/document"
	"github.com/joseph-ayodele/tracking-recovery/internal/ingest"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr"
	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
	"github.com/joseph-ayodele/tracking-recovery/internal/runner"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// runocr prints what the OCR fallback sees for one image or PDF page.
func main() {
	var (
		page  = flag.Int("page", 1, "PDF page (1-based)")
		scale = flag.Float64("scale", 5, "PDF raster scale (dpi = 72*scale)")
		mask  = flag.Bool("mask", false, "isolate magenta ink before OCR")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-page n] [-scale s] [-mask] <file>")
		os.Exit(2)
	}
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	up, err := ingest.ReadFile(flag.Arg(0), 0)
	if err != nil {
		logger.Error("read input", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r := runner.New(logger)
	img, err := load(ctx, cfg, r, logger, up, *page-1, *scale)
	if err != nil {
		logger.Error("load raster", "error", err)
		os.Exit(1)
	}
	if *mask {
		img = raster.ColorMask(img, raster.IsMagenta)
	}

	start := time.Now()
	text, err := bootstrap.OCREngine(cfg.OCR, r, logger).RecognizeText(ctx, img.Std(), cfg.OCR.Languages)
	dur := time.Since(start)
	if err != nil {
		logger.Error("ocr failed", "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}
	normalized := ocr.Normalize(text)
	id, ok := trackingid.Extract(normalized, trackingid.DefaultConfig())

	logger.Info("ocr OK",
		"width", img.Width(),
		"height", img.Height(),
		"chars", len(normalized),
		"tracking_id", id,
		"found", ok,
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(normalized)
}

func load(ctx context.Context, cfg *common.Config, r runner.Runner, logger *slog.Logger, up ingest.Upload, page int, scale float64) (*raster.Image, error) {
	switch constants.FormatOf(up.MimeType) {
	case constants.PDF:
		src, err := document.NewPDFOpener(document.Config{Pdftoppm: cfg.OCR.Pdftoppm, Pdfinfo: cfg.OCR.Pdfinfo}, r, logger).Open(ctx, up.Data)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.RasterizePage(ctx, page, scale)
	case constants.HEIC:
		png, err := document.HEICConverter{Converter: cfg.OCR.HeicConverter, Runner: r, Logger: logger}.Convert(ctx, up.Data)
		if err != nil {
			return nil, err
		}
		return raster.DecodeBytes(png)
	default:
		return raster.DecodeBytes(up.Data)
	}
}
