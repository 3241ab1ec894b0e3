// Package answer turns retrieved chunks and a question into a prose
// answer through an OpenAI-compatible chat completions endpoint.
package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"smartdocs/internal/pipeline"
)

const systemPrompt = "You are a helpful assistant that answers questions using ONLY the provided context. " +
	"If the context is missing the needed information, say you're unsure and suggest what to upload."

// contentGenerator is the slice of langchaingo's model interface we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client is the answer-generation collaborator. Constructed once at
// process start and injected into the API layer.
type Client struct {
	llm         contentGenerator
	temperature float64
	budget      int // character cap for combined context
}

// NewClient builds a chat client for an OpenAI-compatible endpoint
// (e.g. OpenRouter). contextBudget caps the combined grounding context
// in characters.
func NewClient(baseURL, apiKey, model string, contextBudget int) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init chat llm: %w", err)
	}
	return &Client{llm: llm, temperature: 0.2, budget: contextBudget}, nil
}

// Answer generates a grounded answer for the question from the retrieved
// citations.
func (c *Client) Answer(ctx context.Context, question string, citations []pipeline.Citation) (string, error) {
	contextText := BuildContext(citations, c.budget)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Question: %s\n\nGiven the following context (with citations):\n\n%s", question, contextText)),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Content, nil
}

// BuildContext renders citations as "[source p.N] text" entries joined
// by separator lines, capped at budget characters. Truncation is
// chunk-boundary-aware: an entry that would overflow the budget is
// dropped whole rather than cut mid-text. The first entry is always
// included, hard-truncated only if it alone exceeds the budget.
func BuildContext(citations []pipeline.Citation, budget int) string {
	var sb strings.Builder
	for i, c := range citations {
		entry := fmt.Sprintf("[%s p.%d] %s", c.Source, c.Page, c.Text)
		sep := 0
		if i > 0 {
			sep = len("\n---\n")
		}
		if budget > 0 && sb.Len()+sep+len(entry) > budget {
			if i == 0 {
				// Back off to a rune boundary so the cut never splits a
				// multi-byte character.
				cut := budget
				for cut > 0 && !utf8.RuneStart(entry[cut]) {
					cut--
				}
				sb.WriteString(entry[:cut])
			}
			break
		}
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(entry)
	}
	return sb.String()
}
