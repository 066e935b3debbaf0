package tesseract

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/ocr"
)

type fakeClient struct {
	langs  []string
	psm    gosseract.PageSegMode
	prefix string
	image  []byte
	text   string
	err    error
	closed bool
}

func (f *fakeClient) SetImageFromBytes(b []byte) error { f.image = b; return nil }
func (f *fakeClient) SetLanguage(l ...string) error     { f.langs = l; return nil }
func (f *fakeClient) SetPageSegMode(m gosseract.PageSegMode) error {
	f.psm = m
	return nil
}
func (f *fakeClient) SetTessdataPrefix(p string) error { f.prefix = p; return nil }
func (f *fakeClient) Text() (string, error)            { return f.text, f.err }
func (f *fakeClient) Close() error                     { f.closed = true; return nil }

func newTestEngine(cfg ocr.Config, fc *fakeClient) *Engine {
	e := New(cfg)
	e.clientFactory = func() client { return fc }
	return e
}

func TestRecognizeText(t *testing.T) {
	fc := &fakeClient{text: "ALF-20250101-AB12"}
	e := newTestEngine(ocr.Config{PSM: 11, TessdataDir: "/td"}, fc)

	got, err := e.RecognizeText(context.Background(), image.NewGray(image.Rect(0, 0, 3, 3)), []string{"eng", "fra"})
	if err != nil {
		t.Fatalf("RecognizeText: %v", err)
	}
	if got != "ALF-20250101-AB12" {
		t.Fatalf("text = %q", got)
	}
	if diff := cmp.Diff([]string{"eng", "fra"}, fc.langs); diff != "" {
		t.Fatalf("languages (-want +got):\n%s", diff)
	}
	if fc.psm != gosseract.PageSegMode(11) || fc.prefix != "/td" || len(fc.image) == 0 || !fc.closed {
		t.Fatalf("client not configured as expected: %+v", fc)
	}
}

func TestRecognizeTextDefaultsAndErrors(t *testing.T) {
	fc := &fakeClient{err: errors.New("tess failed")}
	e := newTestEngine(ocr.Config{}, fc)

	_, err := e.RecognizeText(context.Background(), image.NewGray(image.Rect(0, 0, 3, 3)), nil)
	if common.CodeOf(err) != common.CodeResource {
		t.Fatalf("err = %v, want RESOURCE_ERROR", err)
	}
	if diff := cmp.Diff(ocr.DefaultLanguages, fc.langs); diff != "" {
		t.Fatalf("languages (-want +got):\n%s", diff)
	}
}
