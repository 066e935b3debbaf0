package ocr

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeRunner struct {
	name   string
	args   []string
	sawPNG bool
	out    string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name, f.args = name, args
	if len(args) > 0 {
		if _, err := os.Stat(args[0]); err == nil {
			f.sawPNG = true
		}
	}
	if f.err != nil {
		return nil, []byte("Error opening data file\nmore"), f.err
	}
	return []byte(f.out), nil, nil
}

func TestCLIEngineArgs(t *testing.T) {
	fr := &fakeRunner{out: "ALF-20250101-AB12\n-----\n"}
	e := NewCLIEngine(Config{PSM: 6, TessdataDir: "/td"}, fr, nil)

	got, err := e.RecognizeText(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), []string{"eng", "deu"})
	if err != nil {
		t.Fatalf("RecognizeText: %v", err)
	}
	if Normalize(got) != "ALF-20250101-AB12" {
		t.Fatalf("text = %q", got)
	}
	if fr.name != "tesseract" || !fr.sawPNG {
		t.Fatalf("runner saw name=%q png=%v", fr.name, fr.sawPNG)
	}
	want := []string{"stdout", "-l", "eng+deu", "--psm", "6", "--tessdata-dir", "/td"}
	if diff := cmp.Diff(want, fr.args[1:]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(fr.args[0]); !os.IsNotExist(err) {
		t.Fatalf("temp input should be removed, stat err = %v", err)
	}
}

func TestCLIEngineDefaultLanguage(t *testing.T) {
	fr := &fakeRunner{}
	e := NewCLIEngine(Config{}, fr, nil)
	if _, err := e.RecognizeText(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatal(err)
	}
	if fr.args[3] != "eng" {
		t.Fatalf("language arg = %q, want eng", fr.args[3])
	}
}

func TestCLIEngineError(t *testing.T) {
	boom := errors.New("exit status 1")
	e := NewCLIEngine(Config{}, &fakeRunner{err: boom}, nil)
	_, err := e.RecognizeText(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
