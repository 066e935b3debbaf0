package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

func TestEnvLoader(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    trackingid.Config
		wantErr bool
	}{
		{"defaults", nil, trackingid.DefaultConfig(), false},
		{"custom", map[string]string{"TRACKING_ID_PREFIX": "req", "TRACKING_ID_DATE_DIGITS": "6"}, trackingid.Config{Prefix: "REQ", DateDigits: 6}, false},
		{"unsupported digits", map[string]string{"TRACKING_ID_DATE_DIGITS": "7"}, trackingid.DefaultConfig(), false},
		{"garbage digits", map[string]string{"TRACKING_ID_DATE_DIGITS": "x"}, trackingid.DefaultConfig(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := EnvLoader{Getenv: func(k string) string { return tt.env[k] }}
			got, err := l.Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileLoaderRereadsEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	l := NewFileLoader(path)

	if err := os.WriteFile(path, []byte(`{"prefix":"alf","dateDigits":8}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := l.Load(context.Background())
	if err != nil || got != trackingid.DefaultConfig() {
		t.Fatalf("Load = %+v, %v", got, err)
	}

	if err := os.WriteFile(path, []byte(`{"prefix":"REQ","dateDigits":6}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := (trackingid.Config{Prefix: "REQ", DateDigits: 6}); got != want {
		t.Fatalf("after edit Load = %+v, want %+v", got, want)
	}
}

func TestFileLoaderRejectsInvalid(t *testing.T) {
	l := NewFileLoader("")
	for _, doc := range []string{
		`{"dateDigits":7}`,
		`{"prefix":"A-B"}`,
		`{"prefix":"ALF","extra":true}`,
		`not json`,
	} {
		_, err := l.Parse([]byte(doc))
		var appErr *common.AppError
		if !errors.As(err, &appErr) || appErr.Code != common.CodeConfig {
			t.Errorf("Parse(%s) err = %v, want CONFIG_ERROR", doc, err)
		}
	}
}

func TestFallback(t *testing.T) {
	broken := LoaderFunc(func(context.Context) (trackingid.Config, error) {
		return trackingid.Config{}, errors.New("db down")
	})
	got, err := Fallback{Loader: broken}.Load(context.Background())
	if err != nil || got != trackingid.DefaultConfig() {
		t.Fatalf("Fallback = %+v, %v", got, err)
	}

	ok := Static(trackingid.Config{Prefix: "req", DateDigits: 6})
	got, _ = Fallback{Loader: ok}.Load(context.Background())
	if got.Prefix != "REQ" {
		t.Fatalf("Fallback passthrough = %+v", got)
	}
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "settings.db")
	st, err := OpenSQLStore(ctx, DBConfig{DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := st.HealthCheck(ctx, 0); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil || got != trackingid.DefaultConfig() {
		t.Fatalf("empty Load = %+v, %v", got, err)
	}

	want := trackingid.Config{Prefix: "REQ", DateDigits: 6}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, trackingid.Config{Prefix: "req", DateDigits: 6}); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}
	got, err = st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}

	if err := st.Save(ctx, trackingid.Config{Prefix: "X", DateDigits: 7}); err == nil {
		t.Fatalf("expected error for 7 digits")
	}
}

func TestIsPostgres(t *testing.T) {
	if !IsPostgres("postgres://u@h/db") || !IsPostgres("postgresql://u@h/db") || IsPostgres("/tmp/x.db") {
		t.Fatalf("IsPostgres classification wrong")
	}
}
