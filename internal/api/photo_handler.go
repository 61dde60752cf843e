package api

import (
	"errors"
	"net/http"

	"github.com/avdeev/postpilot/internal/media"
)

// ListPhotos возвращает фотографии из библиотеки, новые первыми.
// GET /api/v1/photos
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.library.ListPhotos()
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, photos, len(photos))
}

// ServePhoto отдаёт файл фотографии по имени.
// GET /api/v1/photos/{name}
func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	path, err := h.library.PhotoPath(name)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrBadName):
			BadRequest(w, "invalid photo name")
		case errors.Is(err, media.ErrNotFound):
			NotFound(w, "photo not found")
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	http.ServeFile(w, r, path)
}
