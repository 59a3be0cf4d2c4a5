// Package inference implements the client side of the inference endpoint
// contract: a multipart POST with a prompt and an optional image, answered
// by a JSON body carrying a "response" string.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/linanwx/curo/logger"
	"github.com/linanwx/curo/media"
)

const (
	// FieldPrompt and FieldFile are the multipart field names.
	FieldPrompt = "prompt"
	FieldFile   = "file"

	// RequestIDHeader correlates client and server logs.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// ErrMalformedResponse is returned when a success response is not JSON or
// lacks a string "response" field.
var ErrMalformedResponse = errors.New("malformed inference response")

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inference endpoint returned %d", e.Code)
	}
	return fmt.Sprintf("inference endpoint returned %d: %s", e.Code, e.Body)
}

// Request is one submission.
type Request struct {
	Prompt     string
	Attachment *media.Attachment
}

// Config configures a Client.
type Config struct {
	Endpoint string
	Timeout  time.Duration // 0 = no timeout
}

// Client posts submissions to a fixed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg Config) *Client {
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Complete sends req and returns the decoded reply text.
func (c *Client) Complete(ctx context.Context, req *Request) (string, error) {
	start := time.Now()
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	logger.Debug(
		"inference request",
		"requestId", requestID,
		"endpoint", c.endpoint,
		"promptChars", len(req.Prompt),
		"attachmentBytes", req.Attachment.Size(),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return "", &StatusError{Code: httpResp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	reply, err := decodeResponse(raw)
	if err != nil {
		return "", err
	}

	logger.Debug(
		"inference response",
		"requestId", requestID,
		"status", httpResp.StatusCode,
		"outputChars", len(reply),
		"latencyMs", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// encodeMultipart writes the prompt field and, when present, the file part.
func encodeMultipart(req *Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(FieldPrompt, req.Prompt); err != nil {
		return nil, "", fmt.Errorf("write prompt field: %w", err)
	}

	if a := req.Attachment; a != nil {
		name := a.Name
		if name == "" {
			name = "image"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldFile, name))
		h.Set("Content-Type", a.MIMEType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeResponse(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}
	field := gjson.GetBytes(raw, "response")
	if !field.Exists() {
		return "", fmt.Errorf("%w: missing %q field", ErrMalformedResponse, "response")
	}
	if field.Type != gjson.String {
		return "", fmt.Errorf("%w: %q is %s, not a string", ErrMalformedResponse, "response", field.Type)
	}
	return field.Str, nil
}
