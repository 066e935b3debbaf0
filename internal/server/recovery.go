package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/pipeline"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
	"github.com/joseph-ayodele/tracking-recovery/internal/settings"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// Pipeline is the orchestrator surface the service drives.
type Pipeline interface {
	RunLatest(ctx context.Context, g *pipeline.Generations, clientID string, data []byte, mimeType string, cfg trackingid.Config) pipeline.Result
	SubmitCrop(ctx context.Context, s *session.Session, crop session.Crop, cfg trackingid.Config) pipeline.Result
}

type RecoveryService struct {
	pipeline    Pipeline
	settings    settings.Loader
	sessions    session.Store
	generations *pipeline.Generations
	maxUpload   int
	logger      *slog.Logger
}

var _ RecoveryServer = (*RecoveryService)(nil)

func NewRecoveryService(p Pipeline, loader settings.Loader, store session.Store, maxUpload int, logger *slog.Logger) *RecoveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryService{
		pipeline:    p,
		settings:    loader,
		sessions:    store,
		generations: pipeline.NewGenerations(),
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

// RunPipeline implements RecoveryServer.
func (s *RecoveryService) RunPipeline(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	data := in.GetValue()
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("upload is empty")
	}
	if s.maxUpload > 0 && len(data) > s.maxUpload {
		return nil, common.InvalidArgumentErrorf("upload is %d bytes, limit is %d", len(data), s.maxUpload)
	}

	mimeType := firstMetadata(ctx, MetadataMimeType)
	clientID := firstMetadata(ctx, MetadataClientID)
	requestID := uuid.NewString()
	ctx = common.WithRequestID(ctx, requestID)
	if clientID != "" {
		ctx = common.WithClientID(ctx, clientID)
	}
	logger := s.logger.With("request_id", requestID, "client_id", clientID)

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		logger.Error("settings load failed", "error", err)
		return nil, common.GRPCError(err)
	}

	start := time.Now()
	res := s.pipeline.RunLatest(ctx, s.generations, clientID, data, mimeType, cfg)

	if res.Kind == constants.ResultNeedsManualCrop && res.Session != nil {
		if err := s.sessions.Put(ctx, res.Session); err != nil {
			logger.Error("session store failed", "error", err)
			return nil, common.InternalError("could not keep the manual crop session")
		}
	}
	logger.Info("run pipeline",
		"mime_type", mimeType,
		"bytes", len(data),
		"kind", res.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resultStruct(res)
}

// SubmitCrop implements RecoveryServer. The session is taken from the store
// before the crop runs, so it cannot be submitted twice.
func (s *RecoveryService) SubmitCrop(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	id := strings.TrimSpace(fields["session_id"].GetStringValue())
	if id == "" {
		return nil, common.InvalidArgumentError("session_id is required")
	}
	crop := session.Crop{
		Rect: session.Rect{
			X:      fields["x"].GetNumberValue(),
			Y:      fields["y"].GetNumberValue(),
			Width:  fields["width"].GetNumberValue(),
			Height: fields["height"].GetNumberValue(),
		},
		DisplayWidth:  fields["display_width"].GetNumberValue(),
		DisplayHeight: fields["display_height"].GetNumberValue(),
	}
	if crop.Rect.Width <= 0 || crop.Rect.Height <= 0 {
		return nil, common.InvalidArgumentError("width and height must be positive")
	}
	logger := s.logger.With("session_id", id)

	sess, err := s.sessions.Take(ctx, id)
	if err != nil {
		logger.Warn("session take failed", "error", err)
		return nil, common.GRPCError(sessionError(err))
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		logger.Error("settings load failed", "error", err)
		return nil, common.GRPCError(err)
	}
	res := s.pipeline.SubmitCrop(ctx, sess, crop, cfg)
	return resultStruct(res)
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrUsed):
		return common.NewAppError(common.CodeSessionUsed, pipeline.MsgSessionUsed, err)
	case errors.Is(err, session.ErrNotFound):
		return common.NewAppError(common.CodeSessionNotFound, "session not found or expired", err)
	}
	return err
}

// resultStruct flattens a Result. Manual crop results carry the session id
// and the page raster as base64 PNG for display.
func resultStruct(res pipeline.Result) (*structpb.Struct, error) {
	m := map[string]any{
		"kind":    string(res.Kind),
		"message": res.Message,
	}
	if res.TrackingID != "" {
		m["tracking_id"] = res.TrackingID
		m["source"] = res.Source
	}
	if res.Code != "" {
		m["code"] = res.Code
	}
	if res.Session != nil && res.Session.Image != nil {
		png, err := res.Session.Image.PNG()
		if err != nil {
			return nil, common.InternalError("could not encode the page image")
		}
		m["session_id"] = res.Session.ID
		m["width"] = res.Session.Image.Width()
		m["height"] = res.Session.Image.Height()
		m["image_png"] = base64.StdEncoding.EncodeToString(png)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	return out, nil
}

func firstMetadata(ctx context.Context, key string) string {
	if v := metadata.ValueFromIncomingContext(ctx, key); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
