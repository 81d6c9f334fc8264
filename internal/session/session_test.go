package session

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/tandemlabs/tandem/internal/message"
)

func TestStoreCreateSeedsSystemMessage(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	s := st.Create()

	require.NotEmpty(t, s.ID)
	require.NotContains(t, s.ID, "-")
	require.Equal(t, "New Chat", s.Summary().Title)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, message.System, msgs[0].Role)
	require.NotContains(t, msgs[0].Content().Text, "<think>")
}

func TestStoreCreateThinkingInstruction(t *testing.T) {
	t.Parallel()

	st := NewStore(true)
	s := st.Create()

	require.True(t, st.Thinking())
	require.Contains(t, s.Messages()[0].Content().Text, "<think>")
}

func TestStoreGetAndDelete(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	s := st.Create()

	require.Same(t, s, st.Get(s.ID))
	require.Nil(t, st.Get("nope"))

	require.True(t, st.Delete(s.ID))
	require.False(t, st.Delete(s.ID))
	require.Nil(t, st.Get(s.ID))
}

func TestStoreListOrderedByUpdated(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	first := st.Create()
	second := st.Create()

	// Touching the older session moves it to the front.
	time.Sleep(5 * time.Millisecond)
	st.AppendMessage(first.ID, message.User, "hi")

	list := st.List()
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)
	require.Equal(t, second.ID, list[1].ID)
}

func TestStoreListWhileAppending(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	a := st.Create()
	st.Create()

	// Listing must stay safe while another request is appending; the race
	// detector flags any unlocked timestamp read in the comparator.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			st.AppendMessage(a.ID, message.User, "hi")
		}
	}()
	for range 100 {
		st.List()
	}
	<-done

	require.Equal(t, a.ID, st.List()[0].ID)
}

func TestStoreAppendMissingSessionIsNoop(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	st.AppendMessage("missing", message.User, "hello")
	st.RecordUsage("missing", 1, Usage{InputTokens: 1})
	require.Empty(t, st.List())
}

func TestStoreAppendBumpsUpdatedAt(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	s := st.Create()
	before := s.Summary().UpdatedAt

	time.Sleep(5 * time.Millisecond)
	st.AppendMessage(s.ID, message.User, "hello")

	require.True(t, s.Summary().UpdatedAt.After(before))
	require.Equal(t, 2, s.MessageCount())
	require.Equal(t, 1, s.UserMessageCount())
}

func TestStoreRecordUsage(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	s := st.Create()
	st.AppendMessage(s.ID, message.User, "question")
	st.AppendMessage(s.ID, message.Assistant, "answer")

	index := s.MessageCount() - 1
	usage := Usage{InputTokens: 120, OutputTokens: 45, CachedTokens: 10, TotalTokens: 165}
	st.RecordUsage(s.ID, index, usage)

	got, ok := s.Usage(index)
	require.True(t, ok)
	require.Equal(t, usage, got)

	_, ok = s.Usage(0)
	require.False(t, ok)

	// Overwrites are allowed; the last write wins.
	st.RecordUsage(s.ID, index, Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})
	got, _ = s.Usage(index)
	require.Equal(t, int64(3), got.TotalTokens)
}

func TestDeriveTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short prompt", DeriveTitle("short prompt"))

	long := strings.Repeat("a", 61)
	require.Equal(t, strings.Repeat("a", 60)+"...", DeriveTitle(long))

	exact := strings.Repeat("b", 60)
	require.Equal(t, exact, DeriveTitle(exact))

	// The cut never splits a multi-byte rune.
	accented := strings.Repeat("é", 40)
	got := DeriveTitle(accented)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("é", 30)+"...", got)
}

func TestSessionSetTitle(t *testing.T) {
	t.Parallel()

	st := NewStore(false)
	s := st.Create()
	s.SetTitle("Weather in Paris")
	require.Equal(t, "Weather in Paris", s.Summary().Title)
}
