package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiTimeout = 60 * time.Second

// ErrGeminiNotConfigured — ключ API не задан, генерация текста недоступна.
var ErrGeminiNotConfigured = errors.New("gemini api key is not configured")

// CaptionSize — размер генерируемого поста.
type CaptionSize string

// Размеры поста.
const (
	CaptionShort  CaptionSize = "short"
	CaptionMedium CaptionSize = "medium"
	CaptionLong   CaptionSize = "long"
)

// CaptionRequest — параметры генерации текста поста.
type CaptionRequest struct {
	Topic        string
	Size         CaptionSize
	AddHashtags  bool
	HashtagCount int
}

// GeminiClient — клиент Gemini generateContent REST API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient создаёт клиент. Пустой apiKey допустим:
// все вызовы вернут ErrGeminiNotConfigured.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		baseURL: "https://generativelanguage.googleapis.com",
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultGeminiTimeout,
		},
	}
}

// Configured возвращает true, если ключ API задан.
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

// GenerateImagePrompt строит по теме поста визуальный промпт
// для генератора изображений.
func (c *GeminiClient) GenerateImagePrompt(ctx context.Context, topic string) (string, error) {
	prompt := buildImagePromptRequest(topic)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateCaption генерирует текст поста и вычищает
// markdown-разметку, которую модель иногда добавляет вопреки промпту.
func (c *GeminiClient) GenerateCaption(ctx context.Context, req CaptionRequest) (string, error) {
	prompt := buildCaptionRequest(req)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return StripMarkdown(text), nil
}

// --- Wire types ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrGeminiNotConfigured
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("gemini: HTTP %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("gemini: HTTP %d", resp.StatusCode)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// --- Prompt templates ---

func buildImagePromptRequest(topic string) string {
	return `You are an expert at writing prompts for AI image generators. Based on the post topic below, write a VISUAL prompt in English.

POST TOPIC: ` + topic + `

Rules:
1. Focus on the visual content only - what should be in the picture
2. No text in the image (no text overlay, no words)
3. Describe a real scene: objects, people, nature - something that could be photographed
4. Add details: photography style, lighting, mood, color palette
5. The prompt must be 30-80 words

Return ONLY the prompt in English, no explanations or comments.`
}

func buildCaptionRequest(req CaptionRequest) string {
	sizeDesc := map[CaptionSize]string{
		CaptionShort:  "a short and concise post (2-4 sentences, about 150-300 characters)",
		CaptionMedium: "a medium-length post (a few paragraphs, about 500-1000 characters)",
		CaptionLong:   "a long detailed post (about 1500-2000 characters, 2200 characters MAX - the Instagram limit)",
	}
	desc, ok := sizeDesc[req.Size]
	if !ok {
		desc = sizeDesc[CaptionMedium]
	}

	var b strings.Builder
	b.WriteString("Write " + desc + " for Instagram on the topic: " + req.Topic + "\n\n")
	b.WriteString(`FORMAT REQUIREMENTS:
- Do NOT use markdown markup (##, **, _, ~~)
- Do NOT use bold text or headers
- Use emoji sparingly (2-5 per post, no more)
- Do NOT add cliches like "hit the like button" or "subscribe"
- Do NOT end the post with a question
- Write in PLAIN text without formatting

STYLE:
- Natural, lively conversational language
- Structure the text in paragraphs for readability
- Be substantive and interesting
- Write in first person or address the audience directly`)

	if req.AddHashtags {
		count := req.HashtagCount
		if count <= 0 {
			count = 5
		}
		fmt.Fprintf(&b, "\n- At the end (after a blank line) add %d relevant hashtags", count)
	}

	b.WriteString("\n\nRemember: this is an Instagram post, not a blog article. Write naturally, without extra formatting!")
	return b.String()
}
