package chat

import (
	"context"
	"strings"
	"time"

	"github.com/linanwx/curo/inference"
	"github.com/linanwx/curo/logger"
)

// Completer performs one request/response exchange with the inference
// endpoint. *inference.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req *inference.Request) (string, error)
}

// Status is the outcome of a Submit call.
type Status int

const (
	// StatusSkipped means the draft text was blank; nothing happened.
	StatusSkipped Status = iota
	// StatusBusy means another submission was still pending.
	StatusBusy
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusBusy:
		return "busy"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what a Submit call did. Added holds the entries appended
// to the transcript, which is empty unless Status is StatusSucceeded.
type Result struct {
	Status Status
	Added  []Entry
	Err    error
}

// Options tunes controller behaviour.
type Options struct {
	// KeepDraftOnFailure keeps text and attachment after a failed
	// submission instead of clearing them.
	KeepDraftOnFailure bool
}

// Controller turns the draft into transcript entries, one submission at a
// time.
type Controller struct {
	completer  Completer
	opts       Options
	draft      *Draft
	transcript *Transcript
}

// NewController creates a controller with an empty draft and transcript.
func NewController(completer Completer, opts Options) *Controller {
	return &Controller{
		completer:  completer,
		opts:       opts,
		draft:      &Draft{},
		transcript: &Transcript{},
	}
}

// Draft returns the session's input state.
func (c *Controller) Draft() *Draft {
	return c.draft
}

// Transcript returns the session's conversation log.
func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// Submit sends the current draft and records the exchange. It blocks for
// the duration of the network call. Errors are reported in the Result and
// logged; they never leave a partial transcript write behind.
func (c *Controller) Submit(ctx context.Context) Result {
	if strings.TrimSpace(c.draft.Text()) == "" {
		return Result{Status: StatusSkipped}
	}

	text, attachment, ok := c.draft.begin()
	if !ok {
		logger.Debug("submit ignored, request already pending")
		return Result{Status: StatusBusy}
	}
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		// Text was blanked between the check and the claim.
		c.draft.finish(true)
		return Result{Status: StatusSkipped}
	}

	start := time.Now()
	reply, err := c.completer.Complete(ctx, &inference.Request{Prompt: prompt, Attachment: attachment})
	if err != nil {
		logger.Warn(
			"submission failed",
			"promptChars", len(prompt),
			"hasAttachment", attachment != nil,
			"latencyMs", time.Since(start).Milliseconds(),
			"err", err,
		)
		c.draft.finish(c.opts.KeepDraftOnFailure)
		return Result{Status: StatusFailed, Err: err}
	}

	added := make([]Entry, 0, 3)
	added = append(added, UserText(prompt))
	if attachment != nil {
		added = append(added, UserImage(attachment))
	}
	added = append(added, BotText(reply))
	c.transcript.AppendBatch(added...)
	c.draft.finish(false)

	logger.Info(
		"submission completed",
		"entries", len(added),
		"hasAttachment", attachment != nil,
		"latencyMs", time.Since(start).Milliseconds(),
	)
	return Result{Status: StatusSucceeded, Added: added}
}
