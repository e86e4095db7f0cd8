package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1"
)

// OllamaClientImpl implements the Provider interface for a local Ollama
// instance using the non-streaming chat endpoint.
type OllamaClientImpl struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Ollama API structures
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewOllamaClient creates a new Ollama client with configuration.
func NewOllamaClient(baseURL, model string) (*OllamaClientImpl, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	return &OllamaClientImpl{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Name implements Provider.Name.
func (c *OllamaClientImpl) Name() string { return ProviderOllama }

// Complete implements Provider.Complete for the Ollama chat API.
func (c *OllamaClientImpl) Complete(ctx context.Context, messages []Message) (string, error) {
	ollamaMessages := make([]ollamaMessage, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollamaMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := ollamaChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   false,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, string(responseBody))
	}

	var chatResponse ollamaChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if strings.TrimSpace(chatResponse.Message.Content) == "" {
		return "", fmt.Errorf("empty message content in Ollama response")
	}

	return chatResponse.Message.Content, nil
}

// SetTimeout overrides the HTTP client timeout.
func (c *OllamaClientImpl) SetTimeout(d time.Duration) { c.httpClient.Timeout = d }

// SetBaseURL overrides the Ollama base URL. Used in tests.
func (c *OllamaClientImpl) SetBaseURL(url string) { c.baseURL = strings.TrimSuffix(url, "/") }
