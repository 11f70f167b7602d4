package models

// SessionAnswer pairs an answer with its owning question, as loaded for
// analysis mapping.
type SessionAnswer struct {
	Answer   Answer
	Question Question
}
