package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/bootstrap"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/ingest"
	"github.com/joseph-ayodele/tracking-recovery/internal/pipeline"
	svc "github.com/joseph-ayodele/tracking-recovery/internal/server"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type output struct {
	File       string `json:"file"`
	Kind       string `json:"kind"`
	TrackingID string `json:"tracking_id,omitempty"`
	Source     string `json:"source,omitempty"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func main() {
	var (
		file     = flag.String("file", "", "image or PDF to process (required)")
		mimeType = flag.String("mime", "", "override the MIME type derived from the extension")
		cropStr  = flag.String("crop", "", "manual crop x,y,w,h submitted when no code is found automatically")
		display  = flag.String("display", "", "size WxH the crop rectangle was drawn at (defaults to the page raster)")
		savePage = flag.String("save-page", "", "write the page raster offered for manual crop to this PNG path")
		addr     = flag.String("addr", "", "run against a recoveryd instance at host:port instead of in-process")
	)
	flag.Parse()
	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}

	var crop *session.Crop
	if *cropStr != "" {
		c, err := parseCrop(*cropStr, *display)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		crop = &c
	}

	_ = godotenv.Load()
	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	up, err := ingest.ReadFile(*file, int64(cfg.Server.MaxUploadBytes))
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *mimeType != "" {
		up.MimeType = constants.NormalizeMime(*mimeType)
	}

	var out output
	if *addr != "" {
		out, err = runRemote(ctx, *addr, up, crop)
	} else {
		out, err = runLocal(ctx, cfg, logger, up, crop, *savePage)
	}
	if err != nil {
		logger.Error("recovery failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if out.Kind != string(constants.ResultSuccess) {
		os.Exit(3)
	}
}

func runLocal(ctx context.Context, cfg *common.Config, logger *slog.Logger, up ingest.Upload, crop *session.Crop, savePage string) (output, error) {
	if err := cfg.Validate(); err != nil {
		return output{}, err
	}
	loader, closeSettings, err := bootstrap.SettingsLoader(ctx, cfg.Settings, logger)
	if err != nil {
		return output{}, err
	}
	defer closeSettings()
	grammar, err := loader.Load(ctx)
	if err != nil {
		return output{}, err
	}

	orch := bootstrap.Orchestrator(cfg, logger)
	start := time.Now()
	res := orch.Run(ctx, up.Data, up.MimeType, grammar)

	if res.Kind == constants.ResultNeedsManualCrop && res.Session != nil {
		if savePage != "" {
			png, err := res.Session.Image.PNG()
			if err != nil {
				return output{}, err
			}
			if err := os.WriteFile(savePage, png, 0o644); err != nil {
				return output{}, fmt.Errorf("save page: %w", err)
			}
			logger.Info("page raster saved", "path", savePage,
				"width", res.Session.Image.Width(), "height", res.Session.Image.Height())
		}
		if crop != nil {
			res = orch.SubmitCrop(ctx, res.Session, *crop, grammar)
		}
	}
	return fromResult(up.Path, res, time.Since(start)), nil
}

func fromResult(file string, res pipeline.Result, d time.Duration) output {
	out := output{
		File:       file,
		Kind:       string(res.Kind),
		TrackingID: res.TrackingID,
		Source:     res.Source,
		Message:    res.Message,
		Code:       res.Code,
		DurationMS: d.Milliseconds(),
	}
	if res.Session != nil {
		out.SessionID = res.Session.ID
	}
	return out
}

func runRemote(ctx context.Context, addr string, up ingest.Upload, crop *session.Crop) (output, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return output{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	client := svc.NewRecoveryClient(conn)

	start := time.Now()
	res, err := client.RunPipeline(ctx, up.Data, up.MimeType, "recover-cli", grpc.MaxCallSendMsgSize(len(up.Data)+1<<20))
	if err != nil {
		return output{}, err
	}
	if crop != nil && field(res, "kind") == string(constants.ResultNeedsManualCrop) {
		in, err := structpb.NewStruct(map[string]any{
			"session_id":     field(res, "session_id"),
			"x":              crop.Rect.X,
			"y":              crop.Rect.Y,
			"width":          crop.Rect.Width,
			"height":         crop.Rect.Height,
			"display_width":  crop.DisplayWidth,
			"display_height": crop.DisplayHeight,
		})
		if err != nil {
			return output{}, err
		}
		if res, err = client.SubmitCrop(ctx, in); err != nil {
			return output{}, err
		}
	}
	return output{
		File:       up.Path,
		Kind:       field(res, "kind"),
		TrackingID: field(res, "tracking_id"),
		Source:     field(res, "source"),
		Message:    field(res, "message"),
		Code:       field(res, "code"),
		SessionID:  field(res, "session_id"),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

func field(s *structpb.Struct, key string) string { return s.GetFields()[key].GetStringValue() }

// parseCrop reads "x,y,w,h" and an optional "WxH" display size.
func parseCrop(rect, display string) (session.Crop, error) {
	parts := strings.Split(rect, ",")
	if len(parts) != 4 {
		return session.Crop{}, fmt.Errorf("--crop must be x,y,w,h, got %q", rect)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return session.Crop{}, fmt.Errorf("--crop value %q: %w", p, err)
		}
		v[i] = f
	}
	c := session.Crop{Rect: session.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}}
	if display != "" {
		w, h, ok := strings.Cut(strings.ToLower(display), "x")
		if !ok {
			return session.Crop{}, fmt.Errorf("--display must be WxH, got %q", display)
		}
		var err error
		if c.DisplayWidth, err = strconv.ParseFloat(w, 64); err != nil {
			return session.Crop{}, fmt.Errorf("--display width: %w", err)
		}
		if c.DisplayHeight, err = strconv.ParseFloat(h, 64); err != nil {
			return session.Crop{}, fmt.Errorf("--display height: %w", err)
		}
	}
	return c, nil
}
