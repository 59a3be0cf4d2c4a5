// Package media loads image attachments and converts them to data URLs.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMIMEType labels uploads whose format cannot be detected.
const DefaultMIMEType = "image/jpeg"

// ErrNotImage is returned when a file is not a recognised image.
var ErrNotImage = errors.New("not an image file")

// Attachment is an image selected for submission. It owns its bytes.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the attachment size in bytes.
func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// DataURL returns the attachment as a self-contained base64 data URL.
func (a *Attachment) DataURL() string {
	return EncodeDataURL(a.MIMEType, a.Data)
}

// Base64 returns the standard base64 encoding of the attachment bytes.
func (a *Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// imageExtensions maps accepted file extensions to MIME types.
var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// ImageExtensions returns the accepted extensions in sorted order.
func ImageExtensions() []string {
	exts := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads an image file from disk. Files that are not images are
// rejected with ErrNotImage; no other validation is performed.
func Load(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	mimeType := DetectMIME(name, data)
	if mimeType == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	return &Attachment{Name: name, MIMEType: mimeType, Data: data}, nil
}

// FromUpload builds an attachment from uploaded bytes. The declared content
// type is used when the bytes do not identify the format; DefaultMIMEType
// is the last resort.
func FromUpload(name, contentType string, data []byte) *Attachment {
	mimeType := DetectMIME(name, data)
	if mimeType == "" {
		if ct, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(ct, "image/") {
			mimeType = ct
		} else {
			mimeType = DefaultMIMEType
		}
	}
	return &Attachment{Name: name, MIMEType: mimeType, Data: data}
}

// DetectMIME returns the image MIME type for data, or "" when it is not an
// image. Magic bytes win over the file extension.
func DetectMIME(name string, data []byte) string {
	if m := detectByMagic(data); m != "" {
		return m
	}
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := imageExtensions[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); strings.HasPrefix(m, "image/") {
		return m
	}
	return ""
}

func detectByMagic(data []byte) string {
	n := len(data)
	switch {
	case n >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case n >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case n >= 4 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "image/gif"
	case n >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case n >= 2 && data[0] == 0x42 && data[1] == 0x4D:
		return "image/bmp"
	}
	if n > 0 {
		if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
			return ct
		}
	}
	return ""
}
