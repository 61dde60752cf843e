package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avdeev/postpilot/internal/gen"
	"github.com/avdeev/postpilot/internal/media"
)

// Размеры изображения по умолчанию — квадрат под ленту.
const (
	defaultPhotoWidth  = 1024
	defaultPhotoHeight = 1024
)

// GeneratePhoto генерирует изображение и сохраняет его в библиотеку.
// POST /api/v1/generate/photo
func (h *Handler) GeneratePhoto(w http.ResponseWriter, r *http.Request) {
	var req GeneratePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Prompt == "" {
		BadRequest(w, "prompt is required")
		return
	}

	width := req.Width
	if width <= 0 {
		width = defaultPhotoWidth
	}
	height := req.Height
	if height <= 0 {
		height = defaultPhotoHeight
	}

	data, err := h.photoGen.GeneratePhoto(r.Context(), gen.PhotoRequest{
		Prompt: req.Prompt,
		Width:  width,
		Height: height,
		Model:  req.Model,
		Seed:   req.Seed,
	})
	if err != nil {
		h.logger.Error("photo generation failed", "error", err)
		Unavailable(w, "photo generation failed")
		return
	}

	photo, err := h.library.SavePhoto(data, media.PhotoMeta{
		Prompt: req.Prompt,
		Width:  width,
		Height: height,
		Model:  req.Model,
		Seed:   req.Seed,
	})
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, photo)
}

// GeneratePrompt строит визуальный промпт по теме поста.
// POST /api/v1/generate/prompt
func (h *Handler) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req GeneratePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Topic == "" {
		BadRequest(w, "topic is required")
		return
	}

	prompt, err := h.textGen.GenerateImagePrompt(r.Context(), req.Topic)
	if err != nil {
		h.handleGenError(w, err)
		return
	}

	Success(w, GeneratePromptResponse{Prompt: prompt})
}

// GenerateText генерирует текст поста.
// POST /api/v1/generate/text
func (h *Handler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Topic == "" {
		BadRequest(w, "topic is required")
		return
	}

	size := gen.CaptionSize(req.Size)
	switch size {
	case "":
		size = gen.CaptionMedium
	case gen.CaptionShort, gen.CaptionMedium, gen.CaptionLong:
	default:
		BadRequest(w, "size must be one of: short, medium, long")
		return
	}

	caption, err := h.textGen.GenerateCaption(r.Context(), gen.CaptionRequest{
		Topic:        req.Topic,
		Size:         size,
		AddHashtags:  req.AddHashtags,
		HashtagCount: req.HashtagCount,
	})
	if err != nil {
		h.handleGenError(w, err)
		return
	}

	Success(w, GenerateTextResponse{Caption: caption})
}

func (h *Handler) handleGenError(w http.ResponseWriter, err error) {
	if errors.Is(err, gen.ErrGeminiNotConfigured) {
		Unavailable(w, "text generation is not configured")
		return
	}
	h.logger.Error("text generation failed", "error", err)
	Unavailable(w, "text generation failed")
}
