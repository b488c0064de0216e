// Package extract asks a chat-completions model to pull a placement out of
// free text.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"labelcast/internal/models"
)

// ErrBadResponse marks a reply that does not carry a usable placement.
var ErrBadResponse = errors.New("extractor returned no placement")

type OpenAI struct {
	url    string
	apiKey string
	model  string
	prompt string
	client *http.Client
}

func NewOpenAI(url, apiKey, model, prompt string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		url:    url,
		apiKey: apiKey,
		model:  model,
		prompt: prompt,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type extracted struct {
	RestText *string  `json:"rest_text"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Size     *float64 `json:"size"`
}

var placementSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"rest_text": map[string]any{"type": "string", "description": "The rest of the text"},
		"x":         map[string]any{"type": "integer", "description": "The x location"},
		"y":         map[string]any{"type": "integer", "description": "The y location"},
		"size":      map[string]any{"type": "integer", "description": "The size"},
	},
	"additionalProperties": false,
}

// Extract returns the placement described by text. Bounds are not applied.
func (o *OpenAI) Extract(ctx context.Context, text string) (models.Placement, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: o.prompt},
			{Role: "user", Content: text},
		},
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: "extract_schema", Schema: placementSchema},
		},
	})
	if err != nil {
		return models.Placement{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return models.Placement{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return models.Placement{}, fmt.Errorf("call extractor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Placement{}, fmt.Errorf("read extractor reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Placement{}, fmt.Errorf("extractor status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return parseReply(raw)
}

func parseReply(raw []byte) (models.Placement, error) {
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return models.Placement{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(cr.Choices) == 0 {
		return models.Placement{}, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	var ex extracted
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &ex); err != nil {
		return models.Placement{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if ex.RestText == nil || ex.X == nil || ex.Y == nil || ex.Size == nil {
		return models.Placement{}, fmt.Errorf("%w: missing fields", ErrBadResponse)
	}
	return models.Placement{
		Label: *ex.RestText,
		X:     int(*ex.X),
		Y:     int(*ex.Y),
		Size:  int(*ex.Size),
	}, nil
}
