// Package session holds ordered conversation state and per-message usage
// accounting, keyed by session id. It is the ground truth every other
// component reads and mutates.
package session

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tandemlabs/tandem/internal/csync"
	"github.com/tandemlabs/tandem/internal/message"
	"github.com/tandemlabs/tandem/internal/think"
)

const (
	defaultTitle  = "New Chat"
	defaultPrompt = "You are a helpful assistant."

	thinkingInstruction = " Always wrap your internal reasoning inside " +
		think.StartTag + "..." + think.EndTag + " tags before giving your final answer." +
		" The content inside " + think.StartTag + " tags will be hidden from the user by default."

	maxTitleLen = 60
)

// Usage is per-generation token accounting, attached to the assistant
// message index it describes.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	CachedTokens int64 `json:"cached_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Session is one conversation. Messages are append-only; their indices are
// stable and key the usage map.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu       sync.Mutex
	messages []message.Message
	usage    map[int]Usage
}

// Summary is a client-facing snapshot of a session's metadata, safe to read
// while a turn is mutating the session.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Summary returns a consistent snapshot of the session's metadata.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.messages),
	}
}

// Messages returns a snapshot of the ordered message list.
func (s *Session) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessageCount returns the number of messages, including the system message.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Usage returns the usage recorded for the given message index.
func (s *Session) Usage(index int) (Usage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usage[index]
	return u, ok
}

// UserMessageCount returns the number of user-role messages.
func (s *Session) UserMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.Role == message.User {
			n++
		}
	}
	return n
}

// SetTitle replaces the session title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Title = title
}

// DeriveTitle truncates the first user message into a session title. The
// cut backs up to a rune boundary so multi-byte text never gets mangled.
func DeriveTitle(text string) string {
	if len(text) <= maxTitleLen {
		return text
	}
	cut := maxTitleLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// Store owns all sessions for the process. Sessions are independent; the
// store only guarantees per-session consistency, it does not serialize the
// two passes of a turn (the client-side protocol does).
type Store struct {
	thinking bool
	sessions *csync.Map[string, *Session]
}

// NewStore returns an empty store. When thinking is set, new sessions get
// the reasoning-mode instruction appended to their system prompt and
// streams start on the reasoning channel.
func NewStore(thinking bool) *Store {
	return &Store{
		thinking: thinking,
		sessions: csync.NewMap[string, *Session](),
	}
}

// Thinking reports whether reasoning mode is enabled process-wide.
func (st *Store) Thinking() bool {
	return st.thinking
}

// Create seeds a session with its system message and registers it.
func (st *Store) Create() *Session {
	prompt := defaultPrompt
	if st.thinking {
		prompt += thinkingInstruction
	}
	now := time.Now().UTC()
	s := &Session{
		ID:        strings.ReplaceAll(uuid.New().String(), "-", ""),
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		messages: []message.Message{{
			Role:  message.System,
			Parts: []message.ContentPart{message.TextContent{Text: prompt}},
		}},
		usage: make(map[int]Usage),
	}
	st.sessions.Set(s.ID, s)
	return s
}

// Get returns the session or nil if the id is unknown.
func (st *Store) Get(id string) *Session {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil
	}
	return s
}

// Delete removes the session and reports whether it existed.
func (st *Store) Delete(id string) bool {
	return st.sessions.Del(id)
}

// List returns summaries of all sessions ordered by most recently updated
// first. Summaries are locked snapshots, so listing is safe while turns are
// appending to any of the sessions.
func (st *Store) List() []Summary {
	var summaries []Summary
	for _, s := range st.sessions.Seq2() {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// AppendMessage appends a single-text-part message. Missing sessions are a
// silent no-op.
func (st *Store) AppendMessage(id string, role message.Role, text string) {
	st.AppendParts(id, role, []message.ContentPart{message.TextContent{Text: text}})
}

// AppendParts appends a message with the given parts and bumps the
// last-update timestamp. Missing sessions are a silent no-op.
func (st *Store) AppendParts(id string, role message.Role, parts []message.ContentPart) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message.Message{Role: role, Parts: parts})
	s.UpdatedAt = time.Now().UTC()
}

// RecordUsage attaches (or overwrites) usage for the given message index.
func (st *Store) RecordUsage(id string, index int, usage Usage) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[index] = usage
}
