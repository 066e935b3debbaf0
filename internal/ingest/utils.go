package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tracking-recovery/constants"
)

// AllowedExt checks if a file extension is one the pipeline accepts.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

func defaultExts() map[string]struct{} {
	exts := make(map[string]struct{}, len(constants.AllowedExtensions))
	for ext := range constants.AllowedExtensions {
		exts[ext] = struct{}{}
	}
	return exts
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}
