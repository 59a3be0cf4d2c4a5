// Package chat holds the conversation state of a chat session: the draft the
// user is composing, the transcript of what has been exchanged, and the
// controller that turns one into the other.
package chat

import (
	"sync"

	"github.com/linanwx/curo/media"
)

// Draft is the unsent input of a session. It is safe for concurrent use so
// the presentation layer can keep editing while a submission is in flight.
type Draft struct {
	mu         sync.Mutex
	text       string
	attachment *media.Attachment
	pending    bool
}

// SetText replaces the draft text.
func (d *Draft) SetText(value string) {
	d.mu.Lock()
	d.text = value
	d.mu.Unlock()
}

// Text returns the current draft text.
func (d *Draft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// SelectAttachment replaces the pending image. A nil selection (the user
// cancelled the picker) leaves the previous attachment in place.
func (d *Draft) SelectAttachment(a *media.Attachment) {
	if a == nil {
		return
	}
	d.mu.Lock()
	d.attachment = a
	d.mu.Unlock()
}

// Attachment returns the pending image, or nil.
func (d *Draft) Attachment() *media.Attachment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachment
}

// Pending reports whether a submission is in flight. Submit triggers should
// be disabled while it is true.
func (d *Draft) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// begin claims the draft for a submission. It returns false when another
// submission already holds it.
func (d *Draft) begin() (text string, a *media.Attachment, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return "", nil, false
	}
	d.pending = true
	return d.text, d.attachment, true
}

// finish releases the draft and, unless keep is set, clears the text and
// attachment.
func (d *Draft) finish(keep bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	if !keep {
		d.text = ""
		d.attachment = nil
	}
}
