package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/tracking-recovery/internal/bootstrap"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/settings"
)

const usage = `usage: recovery-settings [flags] show|set|health

  show    print the stored tracking id grammar
  set     store -prefix and/or -date-digits
  health  ping the settings database
`

func main() {
	var (
		dsn        = flag.String("db", "", "settings database DSN (defaults to SETTINGS_DB_URL)")
		prefix     = flag.String("prefix", "", "tracking id prefix, e.g. ALF")
		dateDigits = flag.Int("date-digits", 0, "date segment length, 6 or 8")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	dbCfg := bootstrap.DBConfig(cfg.Settings)
	if *dsn != "" {
		dbCfg.DSN = *dsn
	}
	store, err := settings.OpenSQLStore(ctx, dbCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open settings store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "show":
		err = show(ctx, store)
	case "set":
		err = set(ctx, store, *prefix, *dateDigits)
	case "health":
		if err = store.HealthCheck(ctx, 2*time.Second); err == nil {
			fmt.Println("settings db: OK")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func show(ctx context.Context, store *settings.SQLStore) error {
	cfg, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("prefix:      %s\ndate_digits: %d\n", cfg.Prefix, cfg.DateDigits)
	return nil
}

// set merges the given flags over the stored values.
func set(ctx context.Context, store *settings.SQLStore, prefix string, dateDigits int) error {
	if prefix == "" && dateDigits == 0 {
		return fmt.Errorf("nothing to set: pass -prefix and/or -date-digits")
	}
	cur, err := store.Load(ctx)
	if err != nil {
		return err
	}
	next := cur
	if prefix != "" {
		next.Prefix = prefix
	}
	if dateDigits != 0 {
		next.DateDigits = dateDigits
	}
	if err := store.Save(ctx, next); err != nil {
		return err
	}
	return show(ctx, store)
}
