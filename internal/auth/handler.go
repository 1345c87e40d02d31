package auth

import (
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Refresh handles POST /api/auth/refresh and issues a new token for the caller.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	result, err := h.service.IssueToken(userID)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"userId": UserIDFromContext(r.Context())})
}
