// Package llm wraps the external reasoning/completion service.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Message is one turn of a conversation
type Message struct {
	Role    string // system | user | assistant
	Content string
}

// Image is an optional image payload attached to the last user message
type Image struct {
	Data        []byte
	ContentType string
}

// Request describes one completion call
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	ForceJSON   bool
	Image       *Image
}

// Client generates completions. Implementations must tolerate being called
// concurrently.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat completions API
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type apiMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL map[string]string `json:"image_url,omitempty"`
}

type apiRequest struct {
	Model          string            `json:"model"`
	Messages       []apiMessage      `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete submits the request and returns the raw text content of the first choice.
// Transient failures (429, 5xx, network) are retried with exponential backoff.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]apiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, apiMessage{Role: "system", Content: req.System})
	}
	for i, m := range req.Messages {
		if req.Image != nil && i == len(req.Messages)-1 && m.Role == "user" {
			dataURL := fmt.Sprintf("data:%s;base64,%s",
				req.Image.ContentType, base64.StdEncoding.EncodeToString(req.Image.Data))
			messages = append(messages, apiMessage{
				Role: m.Role,
				Content: []contentPart{
					{Type: "text", Text: m.Content},
					{Type: "image_url", ImageURL: map[string]string{"url": dataURL}},
				},
			})
			continue
		}
		messages = append(messages, apiMessage{Role: m.Role, Content: m.Content})
	}

	body := apiRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ForceJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var content string
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("completion request failed: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			b, _ := io.ReadAll(resp.Body)
			return retry.RetryableError(fmt.Errorf("completion API %d: %s", resp.StatusCode, string(b)))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("completion API %d: %s", resp.StatusCode, string(b))
		}

		var result apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode completion response: %w", err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("completion response has no choices")
		}
		content = result.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
