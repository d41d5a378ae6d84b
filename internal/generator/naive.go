package generator

import (
	"context"
	"strings"
)

// NoAnswer is substituted when the source text has too few sentences to fill
// a card.
const NoAnswer = "No answer available"

var cannedQuestions = [...]string{"topic", "one key point", "another concept"}

// Naive is the placeholder summarizer: it splits the text on literal periods
// and takes the first three segments, verbatim, as answers to three canned
// questions. Deterministic for a given input.
type Naive struct{}

func NewNaive() Naive {
	return Naive{}
}

func (Naive) Summarize(_ context.Context, text string) ([]QA, error) {
	segments := strings.Split(text, ".")

	cards := make([]QA, len(cannedQuestions))
	for i, q := range cannedQuestions {
		answer := NoAnswer
		if i < len(segments) {
			answer = segments[i]
		}
		cards[i] = QA{Question: q, Answer: answer}
	}
	return cards, nil
}
