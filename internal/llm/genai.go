// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GenAIBackend calls Google's Gemini API through the genai SDK. System
// messages become the system instruction; the remaining turns are sent as
// user content. It has no asynchronous path.
type GenAIBackend struct {
	APIKey string

	once    sync.Once
	client  *genai.Client
	initErr error
}

func (b *GenAIBackend) models(ctx context.Context) (*genai.Models, error) {
	b.once.Do(func() {
		if b.APIKey == "" {
			b.initErr = fmt.Errorf("GenAI API key is required")
			return
		}
		b.client, b.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  b.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if b.initErr != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", b.initErr)
	}
	return b.client.Models, nil
}

// Complete performs a synchronous generate-content call.
func (b *GenAIBackend) Complete(ctx context.Context, req Request) (Response, error) {
	models, err := b.models(ctx)
	if err != nil {
		return Response{}, err
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	result, err := models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return Response{}, ErrEmptyResponse
	}
	return Response{Content: text}, nil
}
