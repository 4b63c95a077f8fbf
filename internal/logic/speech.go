package logic

import "strings"

// MatchesPhrase reports whether utterance contains token, ignoring case.
func MatchesPhrase(utterance, token string) bool {
	if token == "" {
		return false
	}
	return strings.Contains(strings.ToLower(utterance), strings.ToLower(token))
}

// SpeechCounter counts utterances containing the trigger token.
// Not safe for concurrent use.
type SpeechCounter struct {
	token    string
	required int
	count    int
}

// NewSpeechCounter creates a counter that is met after required matches.
func NewSpeechCounter(token string, required int) *SpeechCounter {
	return &SpeechCounter{token: token, required: required}
}

// Observe records one recognized utterance and reports whether the
// condition is met. The count only grows.
func (s *SpeechCounter) Observe(utterance string) bool {
	if MatchesPhrase(utterance, s.token) {
		s.count++
	}
	return s.Met()
}

// Met reports whether enough matches have been seen.
func (s *SpeechCounter) Met() bool {
	return s.count >= s.required
}

// Count returns the number of matching utterances so far.
func (s *SpeechCounter) Count() int {
	return s.count
}

// Reset clears the count for a new session.
func (s *SpeechCounter) Reset() {
	s.count = 0
}
