package dictation

import "strings"

// Session buffers speech recognition output for one dictation. Interim
// results are ignored; only finalized segments become part of the transcript.
// A Session is not safe for concurrent use.
type Session struct {
	segments []string
	pending  string
}

// NewSession creates an empty Session
func NewSession() *Session {
	return &Session{}
}

// Add records a recognition event
func (s *Session) Add(text string, final bool) {
	text = strings.TrimSpace(text)
	if !final {
		s.pending = text
		return
	}
	s.pending = ""
	if text != "" {
		s.segments = append(s.segments, text)
	}
}

// Pending returns the latest interim text, for display only
func (s *Session) Pending() string {
	return s.pending
}

// Transcript joins the finalized segments
func (s *Session) Transcript() string {
	return strings.Join(s.segments, ", ")
}

// Reset clears the session
func (s *Session) Reset() {
	s.segments = nil
	s.pending = ""
}
