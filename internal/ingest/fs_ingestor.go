package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/tracking-recovery/constants"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
)

// ReadFile loads path and resolves its MIME type from the extension.
// Files over maxBytes (when positive) are rejected before reading.
func ReadFile(path string, maxBytes int64) (Upload, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Upload{}, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return Upload{}, common.NewAppError(common.CodeUnsupportedFormat, fmt.Sprintf("extension %q", ext), common.ErrUnsupported)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Upload{}, common.NewAppError(common.CodeResource, "stat upload", err)
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", abs)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Upload{}, common.NewAppError(common.CodeValidation,
			fmt.Sprintf("%s is %d bytes, limit is %d", abs, info.Size(), maxBytes), common.ErrValidation)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Upload{}, common.NewAppError(common.CodeResource, "read upload", err)
	}
	sum := sha256.Sum256(data)
	return Upload{
		Path:     abs,
		Ext:      ext,
		MimeType: constants.MimeFromExt(ext),
		HashHex:  hex.EncodeToString(sum[:]),
		Data:     data,
	}, nil
}

// Dedup remembers content hashes already processed.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]string)}
}

// Seen records hash for path and reports the earlier path when the same
// content was recorded before.
func (d *Dedup) Seen(hash, path string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.seen[hash]; ok {
		return prev, true
	}
	d.seen[hash] = path
	return "", false
}
