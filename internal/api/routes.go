package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Auth
	mux.Handle("POST /api/v1/auth/login", chain(http.HandlerFunc(h.Login)))
	mux.Handle("GET /api/v1/auth/status", chain(http.HandlerFunc(h.AuthStatus)))
	mux.Handle("POST /api/v1/auth/logout", chain(http.HandlerFunc(h.Logout)))

	// Generation
	mux.Handle("POST /api/v1/generate/photo", chain(http.HandlerFunc(h.GeneratePhoto)))
	mux.Handle("POST /api/v1/generate/prompt", chain(http.HandlerFunc(h.GeneratePrompt)))
	mux.Handle("POST /api/v1/generate/text", chain(http.HandlerFunc(h.GenerateText)))

	// Photo library
	mux.Handle("GET /api/v1/photos", chain(http.HandlerFunc(h.ListPhotos)))
	mux.Handle("GET /api/v1/photos/{name}", chain(http.HandlerFunc(h.ServePhoto)))

	// Posts
	mux.Handle("POST /api/v1/posts", chain(http.HandlerFunc(h.PublishNow)))
	mux.Handle("POST /api/v1/posts/schedule", chain(http.HandlerFunc(h.SchedulePost)))
	mux.Handle("GET /api/v1/posts/scheduled", chain(http.HandlerFunc(h.ListScheduled)))
	mux.Handle("DELETE /api/v1/posts/scheduled/{id}", chain(http.HandlerFunc(h.CancelScheduled)))
	mux.Handle("GET /api/v1/posts/history", chain(http.HandlerFunc(h.PostsHistory)))
}
