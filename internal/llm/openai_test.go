package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		model     string
		wantError bool
	}{
		{
			name:      "Valid configuration",
			apiKey:    "sk-test123",
			model:     "gpt-4o-mini",
			wantError: false,
		},
		{
			name:      "Empty API key",
			apiKey:    "",
			model:     "gpt-4o-mini",
			wantError: true,
		},
		{
			name:      "Default model",
			apiKey:    "sk-test123",
			model:     "",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenAIClient(tt.apiKey, tt.model)

			if tt.wantError && err == nil {
				t.Errorf("NewOpenAIClient() expected error but got none")
			}

			if !tt.wantError && err != nil {
				t.Errorf("NewOpenAIClient() unexpected error: %v", err)
			}

			if !tt.wantError && client == nil {
				t.Errorf("NewOpenAIClient() returned nil client")
			}

			if !tt.wantError && tt.model == "" {
				if client.model != DefaultOpenAIModel {
					t.Errorf("Expected default model %s, got %s", DefaultOpenAIModel, client.model)
				}
			}
		})
	}
}

func TestOpenAIComplete(t *testing.T) {
	var gotRequest openAIChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test123" {
			t.Errorf("Expected bearer auth header, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "CPU saturation is the likely root cause."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test123", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetBaseURL(server.URL)

	text, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are an SRE assistant."},
		{Role: "user", Content: "Summarize the incident."},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if text != "CPU saturation is the likely root cause." {
		t.Errorf("Unexpected completion text: %q", text)
	}
	if gotRequest.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini in request, got %s", gotRequest.Model)
	}
	if len(gotRequest.Messages) != 2 {
		t.Errorf("Expected 2 messages in request, got %d", len(gotRequest.Messages))
	}
	if gotRequest.MaxTokens != DefaultMaxTokens {
		t.Errorf("Expected max_tokens %d, got %d", DefaultMaxTokens, gotRequest.MaxTokens)
	}
}

func TestOpenAIComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	client, _ := NewOpenAIClient("sk-test123", "gpt-4o-mini")
	client.SetBaseURL(server.URL)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Expected an error for a non-200 response")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("Expected status code in error, got %v", err)
	}
}

func TestOpenAIComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
	}))
	defer server.Close()

	client, _ := NewOpenAIClient("sk-test123", "gpt-4o-mini")
	client.SetBaseURL(server.URL)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Expected an error for an empty choices list")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("Expected a no-choices error, got %v", err)
	}
}
