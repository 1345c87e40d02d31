package design

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adgenesis/adgenesis/engine-go/internal/auth"
	"github.com/adgenesis/adgenesis/engine-go/internal/compliance"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type updateRequest struct {
	Document json.RawMessage `json:"document"`
	Version  int             `json:"version"`
}

type retargetRequest struct {
	Format string `json:"format"`
}

// Routes registers the design endpoints on an authenticated router.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/formats", h.Formats).Methods("GET")
	r.HandleFunc("/designs", h.List).Methods("GET")
	r.HandleFunc("/designs", h.Generate).Methods("POST")
	r.HandleFunc("/designs/{designId}", h.Get).Methods("GET")
	r.HandleFunc("/designs/{designId}", h.Update).Methods("PUT")
	r.HandleFunc("/designs/{designId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/designs/{designId}/retarget", h.Retarget).Methods("POST")
	r.HandleFunc("/designs/{designId}/compliance", h.Compliance).Methods("GET")
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	d, err := h.service.Generate(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	d, err := h.service.Get(r.Context(), designID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	designs, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list designs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, designs)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Document) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document is required"})
		return
	}

	d, err := h.service.Update(r.Context(), designID, userID, req.Document, req.Version)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	if err := h.service.Delete(r.Context(), designID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Retarget(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	var req retargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Format == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format is required"})
		return
	}

	d, err := h.service.Retarget(r.Context(), designID, userID, req.Format)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Compliance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	platform := compliance.Platform(r.URL.Query().Get("platform"))
	if platform == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "platform is required"})
		return
	}

	report, err := h.service.Check(r.Context(), designID, userID, platform)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Formats handles GET /api/formats.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	formats := make([]document.Format, 0, len(document.Formats))
	for _, name := range document.FormatNames() {
		formats = append(formats, document.Formats[name])
	}
	writeJSON(w, http.StatusOK, formats)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "design was modified, reload and retry"})
	case errors.Is(err, ErrDesignOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "design is open in an editing session"})
	case errors.Is(err, ErrNoBlueprint):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidDocument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
