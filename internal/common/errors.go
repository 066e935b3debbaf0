package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeResource          = "RESOURCE_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeSessionUsed       = "SESSION_USED"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeConfig            = "CONFIG_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeCancelled         = "CANCELLED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported format")
	ErrTimeout      = errors.New("timed out")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the AppError code in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

// GRPCError maps an application error onto a gRPC status.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch CodeOf(err) {
	case CodeUnsupportedFormat, CodeValidation, CodeConfig:
		return InvalidArgumentError(err.Error())
	case CodeSessionNotFound:
		return NotFoundError(err.Error())
	case CodeSessionUsed:
		return FailedPreconditionError(err.Error())
	case CodeTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case CodeCancelled:
		return status.Error(codes.Canceled, err.Error())
	case CodeResource:
		return status.Error(codes.Unavailable, err.Error())
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupported):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return InternalError(err.Error())
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
