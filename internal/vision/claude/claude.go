package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/spatial-studio/spatial-backend/internal/vision"
)

const defaultModel = "claude-sonnet-4-5"

const floorplanPrompt = `Analyze this floor plan image and produce a 3D model description.
Respond with a single JSON object with two keys:
"model": a Three.js-style scene description (walls, doors, windows, rooms as
objects with positions and sizes in meters),
"dimensions": overall width, depth and estimated ceiling height in meters.
Respond with JSON only, no prose.`

// Analyzer calls the Anthropic Messages API with the floor-plan image and
// parses the model/dimension payloads out of the reply.
type Analyzer struct {
	client *anthropic.Client
	model  string
}

func NewAnalyzer(apiKey, model string) *Analyzer {
	if model == "" {
		model = defaultModel
	}
	return &Analyzer{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (a *Analyzer) AnalyzeFloorplan(ctx context.Context, image []byte, contentType string) (*vision.Result, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(
						anthropic.NewMessageContentSource(
							anthropic.MessagesContentSourceTypeBase64,
							normalizeMediaType(contentType),
							image,
						),
					),
					anthropic.NewTextMessageContent(floorplanPrompt),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return nil, fmt.Errorf("vision response contained no text")
	}

	return parseResult(text)
}

// parseResult extracts the model/dimensions payloads from the reply. The
// model occasionally wraps JSON in a markdown fence; strip it first.
func parseResult(text string) (*vision.Result, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var parsed struct {
		Model      json.RawMessage `json:"model"`
		Dimensions json.RawMessage `json:"dimensions"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse vision response: %w", err)
	}
	if len(parsed.Model) == 0 {
		return nil, fmt.Errorf("vision response missing model payload")
	}

	return &vision.Result{Model: parsed.Model, Dimensions: parsed.Dimensions}, nil
}

// normalizeMediaType maps upload MIME types to the values the API accepts.
func normalizeMediaType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
