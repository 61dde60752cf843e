package gen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// --- StripMarkdown ---

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "## Title\nbody", "Title\nbody"},
		{"bold", "a **b** c", "a b c"},
		{"italic star", "a *b* c", "a b c"},
		{"italic underscore", "a _b_ c", "a b c"},
		{"strike", "a ~~b~~ c", "a b c"},
		{"plain", "no markup here", "no markup here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdown(tt.in); got != tt.want {
				t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- GeminiClient ---

func TestGeminiClient_GenerateCaption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key not passed: %s", r.URL.RawQuery)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt := req.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "coffee") {
			t.Errorf("topic not in prompt: %s", prompt)
		}

		// Ответ с markdown — клиент должен его вычистить
		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []struct {
				Content geminiContent `json:"content"`
			}{
				{Content: geminiContent{Parts: []geminiPart{{Text: "**Morning** coffee is the best"}}}},
			},
		})
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-2.0-flash-exp")
	client.baseURL = server.URL

	text, err := client.GenerateCaption(context.Background(), CaptionRequest{
		Topic: "coffee",
		Size:  CaptionShort,
	})
	if err != nil {
		t.Fatalf("GenerateCaption: %v", err)
	}
	if text != "Morning coffee is the best" {
		t.Errorf("markdown not stripped: %q", text)
	}
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	client := NewGeminiClient("", "gemini-2.0-flash-exp")

	_, err := client.GenerateCaption(context.Background(), CaptionRequest{Topic: "x"})
	if !errors.Is(err, ErrGeminiNotConfigured) {
		t.Errorf("expected ErrGeminiNotConfigured, got %v", err)
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "invalid model"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient("k", "bad-model")
	client.baseURL = server.URL

	_, err := client.GenerateImagePrompt(context.Background(), "topic")
	if err == nil || !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("expected api error message, got %v", err)
	}
}

// --- PollinationsClient ---

func TestPollinationsClient_GeneratePhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/prompt/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("width") != "512" || q.Get("height") != "768" {
			t.Errorf("dimensions not passed: %s", r.URL.RawQuery)
		}
		if q.Get("model") != "flux" || q.Get("nologo") != "true" {
			t.Errorf("model params not passed: %s", r.URL.RawQuery)
		}
		w.Write([]byte("jpeg-data"))
	}))
	defer server.Close()

	client := NewPollinationsClient(server.URL)

	data, err := client.GeneratePhoto(context.Background(), PhotoRequest{
		Prompt: "a cat in the rain",
		Width:  512,
		Height: 768,
	})
	if err != nil {
		t.Fatalf("GeneratePhoto: %v", err)
	}
	if string(data) != "jpeg-data" {
		t.Errorf("unexpected image data: %q", data)
	}
}

func TestPollinationsClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewPollinationsClient(server.URL)

	if _, err := client.GeneratePhoto(context.Background(), PhotoRequest{Prompt: "x"}); err == nil {
		t.Error("expected error on HTTP 502")
	}
}
