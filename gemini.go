package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const definePrompt = `You are an English dictionary.

For the word given below, answer with JSON in exactly this format:
{
  "found": <true if it is a real English word, false otherwise>,
  "definition": "<one short definition, empty if not found>"
}

Rules:
- "found" is true only for real dictionary words, not names or abbreviations.
- Keep the definition under 20 words.
- Answer ONLY with the JSON, no commentary and no markdown.

Word: %q`

// Lookup asks Gemini whether the word exists and for a one-line
// definition. Error mapping matches the REST client so the state machine
// treats both providers identically.
func (g *GeminiDictionary) Lookup(ctx context.Context, word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(reqCtx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: fmt.Sprintf(definePrompt, word)},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		switch {
		case ctx.Err() == context.Canceled:
			return "", ErrLookupCancelled
		case reqCtx.Err() == context.DeadlineExceeded:
			return "", ErrLookupTimeout
		default:
			return "", fmt.Errorf("%w: gemini generate: %v", ErrLookupFailed, err)
		}
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty gemini response", ErrLookupFailed)
	}

	var verdict struct {
		Found      bool   `json:"found"`
		Definition string `json:"definition"`
	}
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return "", fmt.Errorf("%w: parse verdict JSON: %v", ErrLookupFailed, err)
	}

	if !verdict.Found {
		return "", ErrWordNotFound
	}
	if strings.TrimSpace(verdict.Definition) == "" {
		return "", ErrNoDefinition
	}
	return strings.TrimSpace(verdict.Definition), nil
}

var _ Dictionary = (*GeminiDictionary)(nil)
