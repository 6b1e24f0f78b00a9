// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/httputil"
)

// OpenAIBackend calls an OpenAI-compatible chat-completions endpoint
// (OpenAI, vLLM, the GWDG/KISSKI academic cloud and similar).
//
// Complete issues a non-streaming request. When the endpoint only serves
// streams, Complete returns ErrSyncUnavailable and CompleteAsync streams
// the same request in a goroutine.
type OpenAIBackend struct {
	BaseURL string
	APIKey  string

	// StreamOnly skips the synchronous request entirely.
	StreamOnly bool

	// Timeout applies to the lazily built client when Client is nil.
	Timeout time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client

	// MaxRetries bounds retries on HTTP 429 (0 means the httputil default,
	// negative disables retrying).
	MaxRetries int

	Logger *zap.Logger

	once   sync.Once
	client *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message,omitempty"`
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta,omitempty"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (b *OpenAIBackend) httpClient() *http.Client {
	b.once.Do(func() {
		if b.Client != nil {
			b.client = b.Client
			return
		}
		b.client = &http.Client{Timeout: b.Timeout}
	})
	return b.client
}

func (b *OpenAIBackend) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var opts []httputil.Option
	if b.Logger != nil {
		opts = append(opts, httputil.WithLogger(b.Logger))
	}
	return httputil.DoWithRetry(ctx, b.httpClient(), req, b.MaxRetries, opts...)
}

func (b *OpenAIBackend) endpoint() string {
	base := strings.TrimRight(b.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return base + "/chat/completions"
}

func (b *OpenAIBackend) newRequest(ctx context.Context, req Request, stream bool) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.APIKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

// Complete performs a non-streaming chat completion.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Response, error) {
	if b.StreamOnly {
		return Response{}, ErrSyncUnavailable
	}

	httpReq, err := b.newRequest(ctx, req, false)
	if err != nil {
		return Response{}, err
	}

	resp, err := b.do(ctx, httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if streamRequired(resp.StatusCode, body) {
			return Response{}, fmt.Errorf("%w: %s", ErrSyncUnavailable, strings.TrimSpace(string(body)))
		}
		return Response{}, fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Response{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if cResp.Error != nil {
		return Response{}, fmt.Errorf("chat API error: %s", cResp.Error.Message)
	}
	if len(cResp.Choices) == 0 || cResp.Choices[0].Message == nil {
		return Response{}, ErrEmptyResponse
	}
	return Response{Content: cResp.Choices[0].Message.Content}, nil
}

// streamRequired recognizes endpoints that reject non-streaming requests.
func streamRequired(status int, body []byte) bool {
	if status != http.StatusBadRequest && status != http.StatusNotImplemented && status != http.StatusUnprocessableEntity {
		return false
	}
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "stream") &&
		(strings.Contains(lower, "only") || strings.Contains(lower, "required") || strings.Contains(lower, "must"))
}

// CompleteAsync streams the completion in a goroutine and delivers the
// accumulated text as a single Result.
func (b *OpenAIBackend) CompleteAsync(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		content, err := b.stream(ctx, req)
		out <- Result{Response: Response{Content: content}, Err: err}
	}()
	return out
}

func (b *OpenAIBackend) stream(ctx context.Context, req Request) (string, error) {
	httpReq, err := b.newRequest(ctx, req, true)
	if err != nil {
		return "", err
	}

	resp, err := b.do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(body))
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("chat API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta != nil {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
