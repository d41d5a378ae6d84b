// Package generator derives flashcards from extracted document text.
//
// The Summarizer capability keeps the strategy pluggable: the default is a
// naive period splitter, the alternative calls an LLM. Neither the store
// layer nor the transport layer knows which one is wired in.
package generator

import "context"

// QA is one question/answer flashcard pair.
type QA struct {
	Question string
	Answer   string
}

// Summarizer turns extracted text into an ordered sequence of flashcard
// pairs.
type Summarizer interface {
	Summarize(ctx context.Context, text string) ([]QA, error)
}
