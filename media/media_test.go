package media_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linanwx/curo/media"
	"github.com/linanwx/curo/media/mediatest"
)

func TestLoadPNG(t *testing.T) {
	path := mediatest.WritePNG(t, t.TempDir(), "square.png", 10, 10)

	a, err := media.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.Name != "square.png" {
		t.Fatalf("Name = %q, want square.png", a.Name)
	}
	if a.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want image/png", a.MIMEType)
	}
	if a.Size() == 0 {
		t.Fatal("Size() should be non-zero")
	}
}

func TestLoadDetectsFormatByMagicNotExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.dat")
	if err := os.WriteFile(path, mediatest.PNG(t, 2, 2), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := media.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want image/png", a.MIMEType)
	}
}

func TestLoadRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("just some text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := media.Load(path); !errors.Is(err, media.ErrNotImage) {
		t.Fatalf("Load() error = %v, want ErrNotImage", err)
	}
}

func TestLoadMissingFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := media.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
	if _, err := media.Load(dir); err == nil {
		t.Fatal("Load() should fail for a directory")
	}
}

func TestFromUploadFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		want        string
	}{
		{"magic bytes", "blob", "application/octet-stream", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"extension", "pic.webp", "", []byte("????"), "image/webp"},
		{"declared type", "blob", "image/heic", []byte("????"), "image/heic"},
		{"default", "blob", "application/octet-stream", []byte("????"), media.DefaultMIMEType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := media.FromUpload(tt.fileName, tt.contentType, tt.data)
			if a.MIMEType != tt.want {
				t.Fatalf("MIMEType = %q, want %q", a.MIMEType, tt.want)
			}
		})
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	data := mediatest.PNG(t, 10, 10)
	a := &media.Attachment{Name: "square.png", MIMEType: "image/png", Data: data}

	url := a.DataURL()
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("DataURL() prefix = %q", url[:min(len(url), 32)])
	}

	mimeType, decoded, err := media.ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL() error = %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", mimeType)
	}
	if !bytes.Equal(decoded, data) {
		t.Fatal("decoded bytes differ from the original")
	}
}

func TestParseDataURLRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "hello", "data:image/png,abc", "data:image/png;base64", "data:image/png;base64,@@@"} {
		if _, _, err := media.ParseDataURL(in); !errors.Is(err, media.ErrInvalidDataURL) {
			t.Errorf("ParseDataURL(%q) error = %v, want ErrInvalidDataURL", in, err)
		}
	}
}

func TestImageExtensionsSorted(t *testing.T) {
	exts := media.ImageExtensions()
	if len(exts) == 0 {
		t.Fatal("ImageExtensions() is empty")
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] > exts[i] {
			t.Fatalf("ImageExtensions() not sorted: %v", exts)
		}
	}
}
