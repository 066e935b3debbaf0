// Package bootstrap builds the recovery stack from common.Config for the
// command-line entry points.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/document"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr/tesseract"
	"github.com/joseph-ayodele/tracking-recovery/internal/pipeline"
	"github.com/joseph-ayodele/tracking-recovery/internal/runner"
	"github.com/joseph-ayodele/tracking-recovery/internal/search"
	"github.com/joseph-ayodele/tracking-recovery/internal/settings"
	"github.com/joseph-ayodele/tracking-recovery/internal/symbol"
)

// NewLogger returns a text logger without time/level noise, or a JSON
// logger when LOG_FORMAT=json. LOG_LEVEL=debug enables debug output.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// OCREngine picks the tesseract binding named by cfg.Engine.
func OCREngine(cfg common.OCRConfig, r runner.Runner, logger *slog.Logger) ocr.Engine {
	oc := ocr.Config{
		Tesseract:   cfg.Tesseract,
		TessdataDir: cfg.TessdataDir,
		Languages:   cfg.Languages,
		PSM:         cfg.PSM,
		OEM:         cfg.OEM,
	}
	if cfg.Engine == "gosseract" {
		return tesseract.New(oc)
	}
	return ocr.NewCLIEngine(oc, r, logger)
}

// Orchestrator wires decoder, search engine, OCR, PDF and HEIC support.
func Orchestrator(cfg *common.Config, logger *slog.Logger) *pipeline.Orchestrator {
	r := runner.New(logger)

	engine := search.New(symbol.NewZXing(logger),
		search.WithWorkers(cfg.Search.Workers),
		search.WithMaxCandidates(cfg.Search.MaxCandidates),
		search.WithMaxPixels(cfg.Search.MaxPixels),
		search.WithLogger(logger),
	)
	docs := document.NewPDFOpener(document.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		Pdfinfo:  cfg.OCR.Pdfinfo,
	}, r, logger)
	opts := pipeline.DefaultOptions()
	opts.MaxPages = cfg.Pipeline.MaxPages
	opts.FallbackScale = cfg.Pipeline.FallbackScale
	opts.PageTimeout = cfg.Pipeline.PageTimeout
	opts.SearchTimeout = cfg.Pipeline.SearchTimeout
	opts.OCRTimeout = cfg.Pipeline.OCRTimeout
	opts.RunTimeout = cfg.Pipeline.RunTimeout
	opts.Languages = cfg.OCR.Languages

	popts := []pipeline.Option{pipeline.WithOptions(opts), pipeline.WithLogger(logger)}
	if heic := HEICConverter(cfg.OCR, r, logger); heic != nil {
		popts = append(popts, pipeline.WithHEIC(heic))
	} else {
		logger.Info("heic uploads disabled", "heic_converter", cfg.OCR.HeicConverter)
	}
	return pipeline.New(engine, OCREngine(cfg.OCR, r, logger), docs, popts...)
}

// HEICConverter returns the configured converter, or nil when HEIC uploads
// are disabled ("" or "none") or the converter is unknown.
func HEICConverter(cfg common.OCRConfig, r runner.Runner, logger *slog.Logger) pipeline.HEICConverter {
	switch cfg.HeicConverter {
	case "heif-convert", "magick", "sips":
		return document.HEICConverter{
			Converter: cfg.HeicConverter,
			CacheDir:  cfg.ArtifactCacheDir,
			Runner:    r,
			Logger:    logger,
		}
	default:
		return nil
	}
}

// DBConfig maps the settings database section.
func DBConfig(cfg common.SettingsConfig) settings.DBConfig {
	return settings.DBConfig{
		DSN:             cfg.DBURL,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}
}

// SettingsLoader opens the configured settings source. The returned close
// func is never nil.
func SettingsLoader(ctx context.Context, cfg common.SettingsConfig, logger *slog.Logger) (settings.Loader, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Source {
	case "file":
		return settings.NewFileLoader(cfg.File), func() {}, nil
	case "sql":
		store, err := settings.OpenSQLStore(ctx, DBConfig(cfg), logger)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open settings store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, func() {}, fmt.Errorf("migrate settings store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("settings store close failed", "error", err)
			}
		}, nil
	default:
		return settings.EnvLoader{}, func() {}, nil
	}
}
