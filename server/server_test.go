package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/inference"
	"github.com/linanwx/curo/media/mediatest"
	"github.com/linanwx/curo/provider"
)

// recordingProvider captures requests and returns a fixed reply.
type recordingProvider struct {
	mu    sync.Mutex
	reqs  []provider.Request
	reply string
	err   error
}

func (p *recordingProvider) Chat(_ context.Context, req *provider.Request) (*provider.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, *req)
	if p.err != nil {
		return nil, p.err
	}
	return &provider.Response{Content: p.reply}, nil
}

func (p *recordingProvider) last(t *testing.T) provider.Request {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reqs) == 0 {
		t.Fatal("provider was not called")
	}
	return p.reqs[len(p.reqs)-1]
}

type fixedCounter int

func (c fixedCounter) Count(string) (int, error) { return int(c), nil }

func newTestServer(t *testing.T, cfg Config, text, vision provider.Provider, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithTokenCounter(fixedCounter(1))}, opts...)
	s, err := New(cfg, text, vision, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func multipartBody(t *testing.T, prompt *string, fileName string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if prompt != nil {
		if err := w.WriteField("prompt", *prompt); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(file)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func ptr(s string) *string { return &s }

func TestUploadTextOnlyUsesSystemPrompt(t *testing.T) {
	text := &recordingProvider{reply: "Once upon a time"}
	vision := &recordingProvider{reply: "unused"}
	ts := newTestServer(t, Config{SystemPrompt: "Tell bedtime stories."}, text, vision)

	body, ct := multipartBody(t, ptr("A dragon"), "", nil)
	resp, err := http.Post(ts.URL+"/uploadfile", ct, body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, raw)
	}
	if got := gjson.GetBytes(raw, "response").String(); got != "Once upon a time" {
		t.Fatalf("response = %q", got)
	}
	req := text.last(t)
	if req.Prompt != "A dragon" || req.System != "Tell bedtime stories." || req.Image != nil {
		t.Fatalf("text request = %+v", req)
	}
	if len(vision.reqs) != 0 {
		t.Fatal("vision provider should not be used for text-only prompts")
	}
}

func TestUploadWithImageUsesVisionProvider(t *testing.T) {
	png := mediatest.PNG(t, 10, 10)
	text := &recordingProvider{reply: "unused"}
	vision := &recordingProvider{reply: "A square"}
	ts := newTestServer(t, Config{SystemPrompt: "ignored for images"}, text, vision)

	body, ct := multipartBody(t, ptr("Describe this"), "blob.bin", png)
	resp, err := http.Post(ts.URL+"/uploadfile", ct, body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if got := gjson.GetBytes(raw, "response").String(); got != "A square" {
		t.Fatalf("response = %q (status %d)", got, resp.StatusCode)
	}

	req := vision.last(t)
	if req.System != "" {
		t.Errorf("image prompts should not carry a system prompt, got %q", req.System)
	}
	if req.Image == nil || req.Image.MIMEType != "image/png" || !bytes.Equal(req.Image.Data, png) {
		t.Fatalf("image not forwarded correctly: %+v", req.Image)
	}
}

func TestUploadValidation(t *testing.T) {
	ts := newTestServer(t, Config{}, &recordingProvider{reply: "x"}, nil)

	tests := []struct {
		name   string
		prompt *string
		want   int
	}{
		{"missing prompt", nil, http.StatusUnprocessableEntity},
		{"blank prompt", ptr("   "), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.prompt, "", nil)
			resp, err := http.Post(ts.URL+"/uploadfile", ct, body)
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if !gjson.GetBytes(raw, "detail").Exists() {
				t.Fatalf("error body lacks detail: %s", raw)
			}
		})
	}

	resp, err := http.Post(ts.URL+"/uploadfile", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("non-multipart status = %d, want 422", resp.StatusCode)
	}
}

func TestUploadSizeLimit(t *testing.T) {
	const limit = 1024
	tests := []struct {
		name     string
		fileSize int
		want     int
	}{
		{"file at limit", limit, http.StatusOK},
		{"file over limit", limit + 1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingProvider{reply: "x"}
			ts := newTestServer(t, Config{MaxUploadBytes: limit}, p, nil)
			body, ct := multipartBody(t, ptr("hi"), "big.png", bytes.Repeat([]byte{1}, tt.fileSize))
			resp, err := http.Post(ts.URL+"/uploadfile", ct, body)
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want != http.StatusOK && len(p.reqs) != 0 {
				t.Fatal("provider should not be called for oversized uploads")
			}
		})
	}
}

func TestUploadDeclaredLengthOverLimit(t *testing.T) {
	s, err := New(Config{MaxUploadBytes: 1024}, &recordingProvider{reply: "x"}, nil, WithTokenCounter(fixedCounter(1)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/uploadfile", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.ContentLength = 1024 + multipartOverhead + 1
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestPromptTokenLimit(t *testing.T) {
	p := &recordingProvider{reply: "x"}
	ts := newTestServer(t, Config{MaxPromptTokens: 10}, p, nil, WithTokenCounter(fixedCounter(11)))

	resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(`{"prompt":"long"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	if len(p.reqs) != 0 {
		t.Fatal("provider should not be called for oversized prompts")
	}
}

func TestTiktokenCounter(t *testing.T) {
	c, err := NewTiktokenCounter()
	if err != nil {
		t.Fatalf("NewTiktokenCounter() error = %v", err)
	}
	n, err := c.Count("hello world")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Count(hello world) = %d, want 2", n)
	}
}

func TestJSONPromptEndpoint(t *testing.T) {
	p := &recordingProvider{reply: "hi"}
	ts := newTestServer(t, Config{SystemPrompt: "sys"}, p, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"prompt":"hello"}`, http.StatusOK},
		{"not json", `prompt=hello`, http.StatusUnprocessableEntity},
		{"missing", `{"text":"hello"}`, http.StatusUnprocessableEntity},
		{"wrong type", `{"prompt":5}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
	if req := p.last(t); req.System != "sys" || req.Prompt != "hello" {
		t.Fatalf("request = %+v", req)
	}
}

func TestBackendFailureAndEmptyReply(t *testing.T) {
	failing := newTestServer(t, Config{}, &recordingProvider{err: errors.New("quota")}, nil)
	resp, err := http.Post(failing.URL+"/", "application/json", strings.NewReader(`{"prompt":"x"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	empty := newTestServer(t, Config{}, &recordingProvider{reply: "  "}, nil)
	resp, err = http.Post(empty.URL+"/", "application/json", strings.NewReader(`{"prompt":"x"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if got := gjson.GetBytes(raw, "response").String(); got != NoResponseFallback {
		t.Fatalf("response = %q, want fallback", got)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	ts := newTestServer(t, Config{}, &recordingProvider{reply: "x"}, nil)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/uploadfile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS allow-origin header")
	}
	if resp.Header.Get(inference.RequestIDHeader) == "" {
		t.Fatal("request id should be minted when absent")
	}

	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set(inference.RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(inference.RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q, want the caller's id echoed", got)
	}
}

// The chat controller, the inference client and the server agree on the wire
// format end to end.
func TestControllerAgainstServer(t *testing.T) {
	echo, err := provider.New("echo", provider.Options{})
	if err != nil {
		t.Fatalf("provider.New() error = %v", err)
	}
	ts := newTestServer(t, Config{}, echo, nil)

	c := chat.NewController(inference.NewClient(inference.Config{Endpoint: ts.URL + "/uploadfile"}), chat.Options{})
	c.Draft().SetText("Hello")
	if res := c.Submit(context.Background()); res.Status != chat.StatusSucceeded {
		t.Fatalf("Submit() = %v, err = %v", res.Status, res.Err)
	}

	entries := c.Transcript().Entries()
	if len(entries) != 2 || entries[1].Payload != "Echo: Hello" {
		t.Fatalf("transcript = %+v", entries)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, err := New(Config{Addr: "127.0.0.1:0"}, &recordingProvider{reply: "x"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/", "application/json", strings.NewReader(`{"prompt":"x"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestHealthz(t *testing.T) {
	cfg := Config{ProviderName: "echo", TextModel: "echo", VisionModel: "echo"}
	ts := newTestServer(t, cfg, &recordingProvider{reply: "x"}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if got := gjson.GetBytes(body, "status").String(); got != "healthy" {
		t.Fatalf("status field = %q", got)
	}
	if got := gjson.GetBytes(body, "backend.provider").String(); got != "echo" {
		t.Fatalf("backend.provider = %q", got)
	}

	post, err := http.Post(ts.URL+"/healthz", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz status = %d, want 405", post.StatusCode)
	}
}
