// Package think splits a model's token stream into a hidden reasoning
// channel and the user-visible answer channel, keyed on literal marker tags
// embedded in the stream.
package think

import (
	"regexp"
	"strings"
)

const (
	// StartTag and EndTag delimit the reasoning span in the raw stream.
	StartTag = "<think>"
	EndTag   = "</think>"
)

// Channel identifies which logical stream a delta belongs to.
type Channel int

const (
	Answer Channel = iota
	Reasoning
)

// Delta is a fragment of text routed to one channel. Concatenating all
// deltas of a channel reconstructs exactly the raw stream's content inside
// (Reasoning) or outside (Answer) the marker pair, markers elided.
type Delta struct {
	Channel Channel
	Text    string
}

// Splitter is a per-stream transformation with no persisted state. It
// handles markers split across arbitrarily many fragment boundaries by
// retaining a pending suffix that may be a marker prefix.
type Splitter struct {
	inside  bool
	pending string
}

// NewSplitter returns a splitter. inside sets the initial channel: models
// configured to open with reasoning start emitting before any start tag.
func NewSplitter(inside bool) *Splitter {
	return &Splitter{inside: inside}
}

// Feed consumes one raw fragment and returns the deltas it resolves.
func (s *Splitter) Feed(fragment string) []Delta {
	var deltas []Delta
	text := s.pending + fragment
	s.pending = ""

	for text != "" {
		marker := StartTag
		if s.inside {
			marker = EndTag
		}

		if idx := strings.Index(text, marker); idx >= 0 {
			deltas = s.emit(deltas, text[:idx])
			s.inside = !s.inside
			text = text[idx+len(marker):]
			continue
		}

		// No full marker. A prefix of one may end the fragment; hold it
		// back until the next fragment resolves it.
		if idx := trailingPrefix(text, marker); idx >= 0 {
			deltas = s.emit(deltas, text[:idx])
			s.pending = text[idx:]
		} else {
			deltas = s.emit(deltas, text)
		}
		text = ""
	}

	return deltas
}

// Flush drains the pending buffer at end-of-stream. Whatever is left was
// never completed into a marker, so it is plain text for the active channel.
func (s *Splitter) Flush() []Delta {
	if s.pending == "" {
		return nil
	}
	deltas := s.emit(nil, s.pending)
	s.pending = ""
	return deltas
}

func (s *Splitter) emit(deltas []Delta, text string) []Delta {
	if text == "" {
		return deltas
	}
	ch := Answer
	if s.inside {
		ch = Reasoning
	}
	return append(deltas, Delta{Channel: ch, Text: text})
}

// trailingPrefix returns the earliest index whose suffix is a proper prefix
// of marker, or -1. Only such a suffix can still turn into a marker once
// more input arrives.
func trailingPrefix(text, marker string) int {
	start := len(text) - len(marker) + 1
	if start < 0 {
		start = 0
	}
	for i := start; i < len(text); i++ {
		if strings.HasPrefix(marker, text[i:]) {
			return i
		}
	}
	return -1
}

var tagSpan = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(StartTag) + `.*?` + regexp.QuoteMeta(EndTag))

// StripTags removes reasoning spans from a fully accumulated response, for
// persisting only the answer text.
func StripTags(s string) string {
	return strings.TrimSpace(tagSpan.ReplaceAllString(s, ""))
}
