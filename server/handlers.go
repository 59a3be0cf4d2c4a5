package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/linanwx/curo/inference"
	"github.com/linanwx/curo/internal/health"
	"github.com/linanwx/curo/logger"
	"github.com/linanwx/curo/media"
	"github.com/linanwx/curo/provider"
)

const (
	maxJSONBody = 1 << 20

	// multipartOverhead is allowed on top of MaxUploadBytes for the prompt
	// field, part headers and boundaries.
	multipartOverhead = 1 << 20
)

// httpError is a failure with the status it maps to.
type httpError struct {
	status int
	detail string
}

func (e *httpError) Error() string { return e.detail }

// handlePrompt serves POST / with a JSON body {"prompt": "..."}.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if !gjson.ValidBytes(body) {
		writeDetail(w, http.StatusUnprocessableEntity, "body must be a JSON object")
		return
	}
	field := gjson.GetBytes(body, inference.FieldPrompt)
	if field.Type != gjson.String {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: prompt")
		return
	}
	s.respond(w, r, field.Str, nil)
}

// handleUpload serves POST /uploadfile with multipart prompt and optional
// file fields.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	bodyLimit := s.cfg.MaxUploadBytes + multipartOverhead
	if r.ContentLength > bodyLimit {
		writeDetail(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(bodyLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if _, ok := r.MultipartForm.Value[inference.FieldPrompt]; !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: prompt")
		return
	}
	prompt := r.FormValue(inference.FieldPrompt)

	var image *media.Attachment
	file, header, err := r.FormFile(inference.FieldFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeDetail(w, http.StatusUnprocessableEntity, "invalid file field")
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "read upload failed")
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			writeDetail(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if len(data) > 0 {
			image = media.FromUpload(header.Filename, header.Header.Get("Content-Type"), data)
		}
	}

	s.respond(w, r, prompt, image)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, prompt string, image *media.Attachment) {
	reply, err := s.answer(r, prompt, image)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			writeDetail(w, he.status, he.detail)
			return
		}
		logger.Error("model call failed", "requestId", RequestIDFrom(r.Context()), "err", err)
		writeDetail(w, http.StatusBadGateway, "model backend failed")
		return
	}
	writeResponse(w, reply)
}

// answer picks the backend and returns the reply text. Text-only prompts
// carry the system prompt; image prompts are sent bare.
func (s *Server) answer(r *http.Request, prompt string, image *media.Attachment) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &httpError{status: http.StatusUnprocessableEntity, detail: "prompt must not be empty"}
	}
	if err := s.checkPromptTokens(prompt); err != nil {
		return "", err
	}

	req := &provider.Request{Prompt: prompt, Image: image}
	backend := s.vision
	if !req.HasImage() {
		req.System = s.cfg.SystemPrompt
		backend = s.text
	}

	logger.Debug(
		"answering prompt",
		"requestId", RequestIDFrom(r.Context()),
		"promptChars", len(prompt),
		"hasImage", req.HasImage(),
		"imageBytes", image.Size(),
	)

	resp, err := backend.Chat(r.Context(), req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return NoResponseFallback, nil
	}
	return resp.Content, nil
}

func (s *Server) checkPromptTokens(prompt string) error {
	if s.tokens == nil || s.cfg.MaxPromptTokens <= 0 {
		return nil
	}
	n, err := s.tokens.Count(prompt)
	if err != nil {
		logger.Warn("token count failed, skipping limit", "err", err)
		return nil
	}
	if n > s.cfg.MaxPromptTokens {
		return &httpError{
			status: http.StatusRequestEntityTooLarge,
			detail: fmt.Sprintf("prompt is %d tokens, limit is %d", n, s.cfg.MaxPromptTokens),
		}
	}
	return nil
}

func writeResponse(w http.ResponseWriter, reply string) {
	body, err := sjson.SetBytes([]byte(`{}`), "response", reply)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "encode response failed")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	body, _ := sjson.SetBytes([]byte(`{}`), "detail", detail)
	writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := health.Collect(health.Options{
		Started:     s.started,
		Provider:    s.cfg.ProviderName,
		TextModel:   s.cfg.TextModel,
		VisionModel: s.cfg.VisionModel,
	})
	body, err := json.Marshal(snap)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "health snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
