package constants

import (
	"bytes"
	"net/http"
	"strings"
)

// Input formats understood by the recovery pipeline.
const (
	PDF         = "PDF"
	IMAGE       = "IMAGE"
	HEIC        = "HEIC"
	UNSUPPORTED = ""
)

// MIME types the dispatcher recognises.
const (
	MimePDF         = "application/pdf"
	MimePNG         = "image/png"
	MimeJPEG        = "image/jpeg"
	MimeGIF         = "image/gif"
	MimeBMP         = "image/bmp"
	MimeTIFF        = "image/tiff"
	MimeWebP        = "image/webp"
	MimeHEIC        = "image/heic"
	MimeHEIF        = "image/heif"
	MimeOctetStream = "application/octet-stream"
)

// AllowedExtensions holds the file extensions accepted by the CLI, batch and
// inbox inputs, mapped to the MIME type sent to the pipeline.
var AllowedExtensions = map[string]string{
	"pdf":  MimePDF,
	"png":  MimePNG,
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"gif":  MimeGIF,
	"bmp":  MimeBMP,
	"tif":  MimeTIFF,
	"tiff": MimeTIFF,
	"webp": MimeWebP,
	"heic": MimeHEIC,
	"heif": MimeHEIF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeFromExt returns the MIME type for a file extension, or "" if the
// extension is not accepted.
func MimeFromExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// NormalizeMime lowercases a MIME type and drops any parameters.
func NormalizeMime(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

// FormatOf classifies a MIME type. Unknown types yield UNSUPPORTED.
func FormatOf(mime string) string {
	switch mime = NormalizeMime(mime); {
	case mime == MimePDF:
		return PDF
	case mime == MimeHEIC || mime == MimeHEIF:
		return HEIC
	case mime == MimePNG, mime == MimeJPEG, mime == MimeGIF, mime == MimeBMP, mime == MimeTIFF, mime == MimeWebP:
		return IMAGE
	default:
		return UNSUPPORTED
	}
}

// SniffMime resolves a MIME type from magic bytes for uploads that arrive
// without one (or as application/octet-stream).
func SniffMime(data []byte) string {
	if isHEIC(data) {
		return MimeHEIC
	}
	if len(data) >= 4 && (bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))) {
		return MimeTIFF
	}
	return NormalizeMime(http.DetectContentType(data))
}

// isHEIC checks the ISO-BMFF ftyp box for a HEIF brand.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}
