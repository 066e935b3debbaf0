// Package runner executes the external binaries the recovery pipeline
// delegates to (pdftoppm, tesseract, HEIC converters).
package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Exec runs commands with os/exec and logs each invocation. Failures are
// *common.AppError values coded RESOURCE_ERROR, or TIMEOUT when ctx expired.
type Exec struct {
	Logger *slog.Logger
}

func New(logger *slog.Logger) Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return Exec{Logger: logger}
}

func (r Exec) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		logger.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", Truncate(errb.String(), 8<<10), // cap at 8KB
		)
	} else {
		logger.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
			"stderr_bytes", errb.Len(),
		)
	}

	if err != nil {
		code := common.CodeResource
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = common.CodeTimeout
		}
		err = common.NewAppError(code, name, err)
	}
	return out.Bytes(), errb.Bytes(), err
}

// Truncate caps s at max bytes for logging.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
