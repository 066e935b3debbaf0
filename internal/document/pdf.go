package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
	"github.com/joseph-ayodele/tracking-recovery/internal/runner"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo  string // binary name or absolute path; if empty -> "pdfinfo"
}

// PDFOpener opens PDFs. The text layer is read in-process; rasterization
// shells out to pdftoppm.
type PDFOpener struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewPDFOpener(cfg Config, r runner.Runner, logger *slog.Logger) *PDFOpener {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.New(logger)
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	return &PDFOpener{cfg: cfg, runner: r, logger: logger}
}

// PDF is an opened document backed by a temporary copy on disk.
type PDF struct {
	opener *PDFOpener
	dir    string
	path   string
	reader *pdf.Reader // nil when the text layer could not be parsed
	pages  int
}

func (o *PDFOpener) Open(ctx context.Context, data []byte) (Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("open pdf: empty input")
	}
	dir, err := os.MkdirTemp("", "tr-pdf-*")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	d := &PDF{opener: o, dir: dir, path: path}
	if r, err := newReader(data); err == nil {
		d.reader = r
		d.pages = r.NumPage()
	} else {
		o.logger.Warn("pdf text layer unavailable", "error", err)
		if d.pages, err = o.pageCount(ctx, path); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("open pdf: %w", err)
		}
	}
	if d.pages <= 0 {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("open pdf: no pages")
	}
	return d, nil
}

// newReader guards ledongthuc/pdf, which panics on some malformed inputs.
func newReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("parse pdf: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

var rePdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

func (o *PDFOpener) pageCount(ctx context.Context, path string) (int, error) {
	out, errb, err := o.runner.Run(ctx, o.cfg.Pdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w (%s)", err, runner.Truncate(string(errb), 256))
	}
	m := rePdfinfoPages.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("pdfinfo: no page count")
	}
	return strconv.Atoi(string(m[1]))
}

func (d *PDF) PageCount() int { return d.pages }

func (d *PDF) PageText(ctx context.Context, page int) (text string, err error) {
	if page < 0 || page >= d.pages {
		return "", ErrPageRange
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.reader == nil {
		return "", nil
	}
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("page %d text: %v", page+1, p)
		}
	}()
	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d text: %w", page+1, err)
	}
	return text, nil
}

// DPI converts a rasterization scale to pdftoppm resolution.
func DPI(scale float64) int {
	return max(1, int(math.Round(72*scale)))
}

func (d *PDF) RasterizePage(ctx context.Context, page int, scale float64) (*raster.Image, error) {
	if page < 0 || page >= d.pages {
		return nil, ErrPageRange
	}
	n := strconv.Itoa(page + 1)
	prefix := filepath.Join(d.dir, fmt.Sprintf("page-%s-%d", n, DPI(scale)))

	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <prefix>
	_, errb, err := d.opener.runner.Run(ctx, d.opener.cfg.Pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(DPI(scale)), "-png", "-singlefile", d.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %s: %w (%s)", n, err, runner.Truncate(string(errb), 256))
	}
	out := prefix + ".png"
	defer os.Remove(out)

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %s: %w", n, err)
	}
	return raster.DecodeBytes(data)
}

func (d *PDF) Close() error {
	return os.RemoveAll(d.dir)
}
