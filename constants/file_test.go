package constants

import "testing"

func TestFormatOf(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"application/pdf", PDF},
		{"IMAGE/PNG", IMAGE},
		{"image/jpeg; charset=binary", IMAGE},
		{"image/heic", HEIC},
		{"text/plain", UNSUPPORTED},
		{"", UNSUPPORTED},
	}
	for _, tt := range tests {
		if got := FormatOf(tt.mime); got != tt.want {
			t.Errorf("FormatOf(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestSniffMime(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7\n..."), MimePDF},
		{"png", []byte("\x89PNG\r\n\x1a\n0000"), MimePNG},
		{"jpeg", []byte("\xff\xd8\xff\xe0 JFIF"), MimeJPEG},
		{"tiff", []byte("II*\x00rest"), MimeTIFF},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), MimeHEIC},
		{"text", []byte("hello"), "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffMime(tt.data); got != tt.want {
				t.Fatalf("SniffMime = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMimeFromExt(t *testing.T) {
	if got := MimeFromExt(".JPG"); got != MimeJPEG {
		t.Fatalf("MimeFromExt(.JPG) = %q", got)
	}
	if got := MimeFromExt("docx"); got != "" {
		t.Fatalf("MimeFromExt(docx) = %q, want empty", got)
	}
}
