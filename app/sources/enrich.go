package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Enricher is a black-box collaborator that may supply description and
// categories for a raw event before normalization. Enrichment failures never
// fail ingestion.
type Enricher interface {
	Enrich(ctx context.Context, raw RawEvent) error
}

// NopEnricher is the default when no API key is configured.
type NopEnricher struct{}

func (NopEnricher) Enrich(ctx context.Context, raw RawEvent) error {
	return nil
}

const enrichSystemPrompt = `You extract event metadata from scraped page text.
Given the text of an event page, reply with a single JSON object:
{"description": "...", "categories": ["..."]}
Keep the description under 400 characters, in the language of the input.
Use an empty string or empty array when the text gives you nothing.`

// OpenAIEnricher fills in missing description/categories from the event
// page's extracted text.
type OpenAIEnricher struct {
	client *openai.Client
	model  string
}

func NewOpenAIEnricher(apiKey, model string) *OpenAIEnricher {
	return &OpenAIEnricher{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (e *OpenAIEnricher) Enrich(ctx context.Context, raw RawEvent) error {
	description, _ := raw["description"].(string)
	if description != "" {
		return nil
	}

	text, _ := raw["textContent"].(string)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) > 8000 {
		text = text[:8000]
	}

	resp, err := e.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       e.model,
			Temperature: 0.1,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: enrichSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("enrichment request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("enrichment returned no choices")
	}

	var result struct {
		Description string   `json:"description"`
		Categories  []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return fmt.Errorf("failed to decode enrichment response: %w", err)
	}

	if result.Description != "" {
		raw["description"] = result.Description
	}
	if _, ok := raw["categories"]; !ok && len(result.Categories) > 0 {
		raw["categories"] = result.Categories
	}

	slog.Debug("Event enriched", "link", raw["link"],
		"description_length", len(result.Description), "categories", len(result.Categories))

	return nil
}
