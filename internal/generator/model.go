package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quizmint/internal/ai"
)

const summarizePrompt = "You write study flashcards. Given the document text, " +
	"produce exactly three question/answer pairs covering its main topic and " +
	"two key points. Respond with a JSON array only, no prose: " +
	`[{"question": "...", "answer": "..."}, ...]`

// Model is the LLM-backed summarizer. It replaces Naive without any change
// to the service or store layers.
type Model struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.ChatConfig
}

func NewModel(client *ai.OpenAICompatibleClient, cfg ai.ChatConfig) *Model {
	return &Model{client: client, cfg: cfg}
}

func (m *Model) Summarize(ctx context.Context, text string) ([]QA, error) {
	content, err := m.client.Complete(ctx, m.cfg, []ai.ChatMessage{
		{Role: "system", Content: summarizePrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		return nil, fmt.Errorf("model summarize failed: %w", err)
	}

	var parsed []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse model cards failed: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("model returned no cards")
	}

	cards := make([]QA, 0, len(parsed))
	for _, p := range parsed {
		q := strings.TrimSpace(p.Question)
		a := strings.TrimSpace(p.Answer)
		if q == "" {
			continue
		}
		if a == "" {
			a = NoAnswer
		}
		cards = append(cards, QA{Question: q, Answer: a})
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model returned no usable cards")
	}
	return cards, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
