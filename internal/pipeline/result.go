package pipeline

import (
	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
)

// User-facing messages. Every terminal result carries one.
const (
	MsgUnsupported   = "This file type is not supported. Upload a photo (PNG, JPEG, WebP, HEIC) or a PDF."
	MsgUnreadable    = "The file could not be read. Upload a clearer photo or the original PDF."
	MsgManualCrop    = "We could not find the tracking code automatically. Select the area around the QR code or tracking number and submit it."
	MsgCropFailed    = "No tracking code was found in the selected area. Select a clearer region around the code and try again."
	MsgBadCrop       = "The selected area is empty or outside the image. Draw a rectangle around the code and try again."
	MsgSessionUsed   = "This selection session was already used. Upload the file again to start a new one."
	MsgTimeout       = "Recovery took too long. Try a clearer photo or select the code region manually."
	MsgCancelled     = "Recovery was cancelled."
	MsgSuperseded    = "This upload was replaced by a newer one."
	MsgInternalError = "Something went wrong while reading the file. Please try again."
	MsgFound         = "Tracking code recovered."
)

// Where a tracking id was recovered from.
const (
	SourceSymbol    = "symbol"
	SourceOCR       = "ocr"
	SourceTextLayer = "text_layer"
)

// Result is the single outcome of Run or SubmitCrop.
type Result struct {
	Kind       constants.ResultKind
	TrackingID string
	Message    string
	Source     string           // set on success
	Session    *session.Session // set on NeedsManualCrop
	Code       string           // common.Code* for failures
}

var failureCodes = map[string]string{
	MsgUnsupported:   common.CodeUnsupportedFormat,
	MsgUnreadable:    common.CodeResource,
	MsgCropFailed:    common.CodeValidation,
	MsgBadCrop:       common.CodeValidation,
	MsgSessionUsed:   common.CodeSessionUsed,
	MsgTimeout:       common.CodeTimeout,
	MsgCancelled:     common.CodeCancelled,
	MsgSuperseded:    common.CodeCancelled,
	MsgInternalError: common.CodeInternal,
}

func Success(id, source string) Result {
	return Result{Kind: constants.ResultSuccess, TrackingID: id, Message: MsgFound, Source: source}
}

func NeedsManualCrop(s *session.Session, msg string) Result {
	return Result{Kind: constants.ResultNeedsManualCrop, Message: msg, Session: s}
}

func Failure(msg string) Result {
	code, ok := failureCodes[msg]
	if !ok {
		code = common.CodeInternal
	}
	return Result{Kind: constants.ResultFailure, Message: msg, Code: code}
}

func (r Result) IsSuccess() bool { return r.Kind == constants.ResultSuccess }

// Err returns the failure as a *common.AppError, or nil for other kinds.
func (r Result) Err() error {
	if r.Kind != constants.ResultFailure {
		return nil
	}
	var cause error
	switch r.Code {
	case common.CodeUnsupportedFormat:
		cause = common.ErrUnsupported
	case common.CodeTimeout:
		cause = common.ErrTimeout
	}
	return common.NewAppError(r.Code, r.Message, cause)
}
