package chat

import (
	"sync"

	"github.com/linanwx/curo/media"
)

// Sender identifies who produced a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Entry is one line of the conversation. When IsImage is set, Payload is a
// base64 data URL and must be rendered as an image, never as text.
type Entry struct {
	Sender  Sender
	Payload string
	IsImage bool
}

// UserText builds a user text entry.
func UserText(text string) Entry {
	return Entry{Sender: SenderUser, Payload: text}
}

// UserImage builds a user image entry holding its own copy of the bytes.
func UserImage(a *media.Attachment) Entry {
	return Entry{Sender: SenderUser, Payload: a.DataURL(), IsImage: true}
}

// BotText builds a bot reply entry.
func BotText(text string) Entry {
	return Entry{Sender: SenderBot, Payload: text}
}

// Transcript is an append-only, ordered conversation log.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// AppendBatch appends entries as a single update. Readers never observe a
// partially applied batch.
func (t *Transcript) AppendBatch(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, entries...)
	t.mu.Unlock()
}

// Entries returns a snapshot of the log in display order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
