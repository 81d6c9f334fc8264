package think

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, inside bool, fragments ...string) (reasoning, answer string) {
	t.Helper()

	s := NewSplitter(inside)
	var deltas []Delta
	for _, f := range fragments {
		deltas = append(deltas, s.Feed(f)...)
	}
	deltas = append(deltas, s.Flush()...)

	for _, d := range deltas {
		if d.Channel == Reasoning {
			reasoning += d.Text
		} else {
			answer += d.Text
		}
	}
	return reasoning, answer
}

func TestSplitterBasic(t *testing.T) {
	t.Parallel()

	reasoning, answer := collect(t, true, "I should greet.</think>Hello!")
	require.Equal(t, "I should greet.", reasoning)
	require.Equal(t, "Hello!", answer)
}

func TestSplitterStartsOutside(t *testing.T) {
	t.Parallel()

	reasoning, answer := collect(t, false, "Hello <think>hmm</think>world")
	require.Equal(t, "hmm", reasoning)
	require.Equal(t, "Hello world", answer)
}

func TestSplitterMarkerAcrossFragments(t *testing.T) {
	t.Parallel()

	reasoning, answer := collect(t, true, "plan</th", "ink>done")
	require.Equal(t, "plan", reasoning)
	require.Equal(t, "done", answer)
}

func TestSplitterMarkerSplitPerByte(t *testing.T) {
	t.Parallel()

	reasoning, answer := collect(t, true,
		"a", "<", "/", "t", "h", "i", "n", "k", ">", "b")
	require.Equal(t, "a", reasoning)
	require.Equal(t, "b", answer)
}

func TestSplitterChunkingInvariance(t *testing.T) {
	t.Parallel()

	raw := "First I consider the problem.</think>The answer is 42." +
		"<think>wait, check</think> Confirmed."

	wantReasoning, wantAnswer := collect(t, true, raw)

	// Any fragmentation of the same stream must resolve identically.
	for size := 1; size <= 5; size++ {
		var fragments []string
		for i := 0; i < len(raw); i += size {
			fragments = append(fragments, raw[i:min(i+size, len(raw))])
		}
		reasoning, answer := collect(t, true, fragments...)
		require.Equal(t, wantReasoning, reasoning, "fragment size %d", size)
		require.Equal(t, wantAnswer, answer, "fragment size %d", size)
	}
}

func TestSplitterFalseMarkerPrefix(t *testing.T) {
	t.Parallel()

	// A '<' that never completes into a marker is plain text.
	reasoning, answer := collect(t, true, "x < y</think>a <b> c")
	require.Equal(t, "x < y", reasoning)
	require.Equal(t, "a <b> c", answer)
}

func TestSplitterPendingFlushedAtEnd(t *testing.T) {
	t.Parallel()

	s := NewSplitter(true)
	deltas := s.Feed("thinking...</thin")
	require.Equal(t, []Delta{{Channel: Reasoning, Text: "thinking..."}}, deltas)

	// Stream ends mid-marker; the held-back suffix is ordinary text.
	require.Equal(t, []Delta{{Channel: Reasoning, Text: "</thin"}}, s.Flush())
	require.Empty(t, s.Flush())
}

func TestSplitterDisabledNeverEntersReasoning(t *testing.T) {
	t.Parallel()

	reasoning, answer := collect(t, false, "plain text, no tags at all")
	require.Empty(t, reasoning)
	require.Equal(t, "plain text, no tags at all", answer)
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no tags", "hello", "hello"},
		{"single span", "<think>reasoning</think>answer", "answer"},
		{"multiline span", "<think>line1\nline2</think>\nanswer", "answer"},
		{"multiple spans", "<think>a</think>x<think>b</think>y", "xy"},
		{"unclosed tag kept", "<think>never closed", "<think>never closed"},
		{"only span", "<think>all hidden</think>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, StripTags(tt.input))
		})
	}
}
