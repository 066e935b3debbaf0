package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/bootstrap"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/export"
	"github.com/joseph-ayodele/tracking-recovery/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		exts       = flag.String("ext", "", "comma separated extensions to include (default: every supported type)")
		parallel   = flag.Int("parallel", 2, "files processed concurrently")
		skipHidden = flag.Bool("skip-hidden", true, "skip dot files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "tracking-ids.xlsx")
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	loader, closeSettings, err := bootstrap.SettingsLoader(ctx, cfg.Settings, logger)
	if err != nil {
		logger.Error("failed to open settings source", "error", err)
		os.Exit(1)
	}
	defer closeSettings()

	var include []string
	if *exts != "" {
		include = strings.Split(*exts, ",")
	}
	paths, stats, err := ingest.ScanDirectory(*dir, include, *skipHidden)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("directory scanned", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	orch := bootstrap.Orchestrator(cfg, logger)
	report := export.NewReport(logger)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *parallel))
	for _, path := range paths {
		g.Go(func() error {
			fileStart := time.Now()
			up, err := ingest.ReadFile(path, int64(cfg.Server.MaxUploadBytes))
			if err != nil {
				report.Add(export.Row{File: path, Kind: constants.ResultFailure, Message: err.Error(), Code: common.CodeOf(err)})
				return nil
			}
			grammar, err := loader.Load(gctx)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			res := orch.Run(gctx, up.Data, up.MimeType, grammar)
			report.Add(export.Row{
				File:       path,
				Kind:       res.Kind,
				TrackingID: res.TrackingID,
				Source:     res.Source,
				Message:    res.Message,
				Code:       res.Code,
				Duration:   time.Since(fileStart),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("batch aborted", "error", err)
		os.Exit(1)
	}

	if err := report.WriteFile(*out); err != nil {
		logger.Error("failed to write report", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("batch complete",
		"files", len(paths),
		"report", *out,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
