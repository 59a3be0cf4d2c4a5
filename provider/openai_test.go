package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/linanwx/curo/media"
)

func newOpenAITestServer(t *testing.T, content string, captured *[]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s, want .../chat/completions", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
			w.WriteHeader(500)
			return
		}
		*captured = body

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "test-id",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4o",
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
				"total_tokens":      15,
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAITextRequestCarriesSystemPrompt(t *testing.T) {
	var body []byte
	server := newOpenAITestServer(t, "Once upon a time", &body)

	p := newOpenAIProvider("test-key", server.URL, "gpt-4o-mini", 256, 0)
	resp, err := p.Chat(context.Background(), &Request{System: "Tell stories.", Prompt: "A dragon"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "Once upon a time" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}

	if got := gjson.GetBytes(body, "model").String(); got != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", got)
	}
	if got := gjson.GetBytes(body, "max_tokens").Int(); got != 256 {
		t.Errorf("max_tokens = %d, want 256", got)
	}
	msgs := gjson.GetBytes(body, "messages").Array()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2: %s", len(msgs), body)
	}
	if msgs[0].Get("role").String() != "system" || msgs[0].Get("content").String() != "Tell stories." {
		t.Errorf("system message = %s", msgs[0].Raw)
	}
	if msgs[1].Get("role").String() != "user" || msgs[1].Get("content").String() != "A dragon" {
		t.Errorf("user message = %s", msgs[1].Raw)
	}
}

func TestOpenAIVisionRequestSendsDataURL(t *testing.T) {
	var body []byte
	server := newOpenAITestServer(t, "A square", &body)

	img := &media.Attachment{Name: "a.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	p := newOpenAIProvider("test-key", server.URL+"/", "gpt-4o", 0, 0)
	resp, err := p.Chat(context.Background(), &Request{Prompt: "Describe this", Image: img})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "A square" {
		t.Fatalf("Content = %q", resp.Content)
	}

	msgs := gjson.GetBytes(body, "messages").Array()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1 (no system prompt): %s", len(msgs), body)
	}
	parts := msgs[0].Get("content").Array()
	if len(parts) != 2 {
		t.Fatalf("content parts = %d, want 2", len(parts))
	}
	if parts[0].Get("type").String() != "text" || parts[0].Get("text").String() != "Describe this" {
		t.Errorf("text part = %s", parts[0].Raw)
	}
	if parts[1].Get("type").String() != "image_url" {
		t.Errorf("image part type = %s", parts[1].Get("type").String())
	}
	if got := parts[1].Get("image_url.url").String(); got != img.DataURL() {
		t.Errorf("image url = %q, want %q", got, img.DataURL())
	}
	if gjson.GetBytes(body, "max_tokens").Exists() {
		t.Error("max_tokens should be omitted when unset")
	}
}

func TestOpenAIServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	p := newOpenAIProvider("test-key", server.URL, "nope", 0, 0)
	if _, err := p.Chat(context.Background(), &Request{Prompt: "hi"}); err == nil {
		t.Fatal("Chat() should fail on a 400 response")
	}
}
