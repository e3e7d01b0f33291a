// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/danielhkuo/prepsense/models"
)

const (
	DefaultIdeas = 3
	MaxIdeas     = 10
)

// OpenAIClient asks a chat model for recipe ideas
type OpenAIClient struct {
	model llms.Model
	retry Retry
}

// NewOpenAIClient builds a client on the OpenAI chat API. baseURL may be
// empty for the public endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithHTTPClient(statusDoer{&http.Client{}}),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai init: %w", err)
	}
	return NewOpenAIClientWithModel(llm), nil
}

// NewOpenAIClientWithModel wraps any langchaingo model
func NewOpenAIClientWithModel(m llms.Model) *OpenAIClient {
	r := DefaultRetry()
	r.Timeout = 60 * time.Second
	return &OpenAIClient{model: m, retry: r}
}

// WithRetry replaces the retry policy
func (c *OpenAIClient) WithRetry(r Retry) *OpenAIClient {
	c.retry = r
	return c
}

// SuggestRecipes asks for n recipe ideas that use the pantry items
func (c *OpenAIClient) SuggestRecipes(ctx context.Context, pantry []string, n int) ([]models.RecipeIdea, error) {
	if c == nil || c.model == nil {
		return nil, ErrNotConfigured
	}
	if len(pantry) == 0 {
		return nil, errors.New("pantry is empty")
	}
	if n <= 0 {
		n = DefaultIdeas
	}
	if n > MaxIdeas {
		n = MaxIdeas
	}

	prompt := buildPrompt(pantry, n)

	var text string
	err := c.retry.Do(ctx, "suggestRecipes", func(ctx context.Context) error {
		var err error
		text, err = llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
			llms.WithTemperature(0.7),
			llms.WithMaxTokens(1500),
		)
		return err
	})
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openai suggest recipes: %w", ErrRateLimited)
	}
	if err != nil {
		return nil, fmt.Errorf("openai suggest recipes: %w", err)
	}

	ideas, err := ParseIdeas(text)
	if err != nil {
		return nil, err
	}
	if len(ideas) > n {
		ideas = ideas[:n]
	}
	return ideas, nil
}

func buildPrompt(pantry []string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d recipes that mainly use these pantry ingredients:\n", n)
	for _, item := range pantry {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("\nPrefer recipes that need few extra ingredients. ")
	b.WriteString("Respond with only a JSON array. Each element must have the keys ")
	b.WriteString(`"title" (string), "ingredients" (array of strings), `)
	b.WriteString(`"instructions" (array of strings) and "why" (one sentence).`)
	return b.String()
}

// ParseIdeas decodes a model reply into recipe ideas. Markdown code fences
// and text around the JSON array are ignored; ideas without a title are
// dropped.
func ParseIdeas(text string) ([]models.RecipeIdea, error) {
	body := stripFences(text)

	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var raw []models.RecipeIdea
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode recipe ideas: %w", err)
	}

	ideas := make([]models.RecipeIdea, 0, len(raw))
	for _, idea := range raw {
		idea.Title = strings.TrimSpace(idea.Title)
		if idea.Title == "" {
			continue
		}
		if idea.Ingredients == nil {
			idea.Ingredients = []string{}
		}
		if idea.Instructions == nil {
			idea.Instructions = []string{}
		}
		ideas = append(ideas, idea)
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("model reply contained no recipe ideas")
	}
	return ideas, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line (``` or ```json) and the closing fence
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
