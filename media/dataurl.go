package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

const dataURLScheme = "data:"

// ErrInvalidDataURL is returned by ParseDataURL for malformed input.
var ErrInvalidDataURL = errors.New("invalid data URL")

// EncodeDataURL formats data as "data:<mime>;base64,<payload>".
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	var b strings.Builder
	b.Grow(len(dataURLScheme) + len(mimeType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataURLScheme)
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// ParseDataURL decodes a base64 data URL produced by EncodeDataURL.
func ParseDataURL(s string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(s, dataURLScheme) {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(s[len(dataURLScheme):], ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	mimeType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDataURL, err)
	}
	return mimeType, data, nil
}
