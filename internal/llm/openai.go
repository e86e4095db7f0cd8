package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultMaxTokens     = 1024
	DefaultTimeout       = 30 * time.Second
)

// OpenAIClientImpl implements the Provider interface for OpenAI-compatible
// chat-completion APIs.
type OpenAIClientImpl struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// OpenAI API structures
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient creates a new OpenAI client with configuration.
func NewOpenAIClient(apiKey, model string) (*OpenAIClientImpl, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClientImpl{
		apiKey:    apiKey,
		model:     model,
		maxTokens: DefaultMaxTokens,
		baseURL:   DefaultOpenAIBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Name implements Provider.Name.
func (c *OpenAIClientImpl) Name() string { return ProviderOpenAI }

// Complete implements Provider.Complete for the OpenAI chat completions API.
func (c *OpenAIClientImpl) Complete(ctx context.Context, messages []Message) (string, error) {
	openAIMessages := make([]openAIMessage, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = openAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openAIChatRequest{
		Model:       c.model,
		Messages:    openAIMessages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
	}

	response, err := c.makeRequest(ctx, "/chat/completions", request)
	if err != nil {
		return "", fmt.Errorf("OpenAI API request failed: %w", err)
	}

	var chatResponse openAIChatResponse
	if err := json.Unmarshal(response, &chatResponse); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	if len(chatResponse.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	return chatResponse.Choices[0].Message.Content, nil
}

// makeRequest makes an HTTP request to the OpenAI API
func (c *OpenAIClientImpl) makeRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(responseBody))
	}

	return responseBody, nil
}

// SetBaseURL overrides the OpenAI API base URL. Used for gateways and tests.
func (c *OpenAIClientImpl) SetBaseURL(url string) { c.baseURL = url }

// SetTimeout overrides the HTTP client timeout.
func (c *OpenAIClientImpl) SetTimeout(d time.Duration) { c.httpClient.Timeout = d }
