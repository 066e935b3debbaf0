// Package settings loads the operator-controlled tracking identifier grammar.
// Loaders are consulted on every extraction attempt so changes apply to the
// next upload without a restart.
package settings

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

type Loader interface {
	Load(ctx context.Context) (trackingid.Config, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (trackingid.Config, error)

func (f LoaderFunc) Load(ctx context.Context) (trackingid.Config, error) { return f(ctx) }

// Static always returns the same config.
func Static(cfg trackingid.Config) Loader {
	return LoaderFunc(func(context.Context) (trackingid.Config, error) { return cfg.Normalized(), nil })
}

// EnvLoader reads TRACKING_ID_PREFIX and TRACKING_ID_DATE_DIGITS.
type EnvLoader struct {
	Getenv func(string) string // os.Getenv when nil
}

func (e EnvLoader) Load(context.Context) (trackingid.Config, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := trackingid.Config{Prefix: getenv("TRACKING_ID_PREFIX")}
	if v := getenv("TRACKING_ID_DATE_DIGITS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return trackingid.DefaultConfig(), invalid("TRACKING_ID_DATE_DIGITS must be 6 or 8", err)
		}
		cfg.DateDigits = n
	}
	return cfg.Normalized(), nil
}

// Fallback never fails: when the wrapped loader errors it logs and returns
// the default grammar, so a broken settings source degrades to ALF/8 instead
// of failing uploads.
type Fallback struct {
	Loader Loader
	Logger *slog.Logger
}

func (f Fallback) Load(ctx context.Context) (trackingid.Config, error) {
	cfg, err := f.Loader.Load(ctx)
	if err != nil {
		logger := f.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("tracking id settings unavailable, using defaults", "error", err)
		return trackingid.DefaultConfig(), nil
	}
	return cfg.Normalized(), nil
}
