package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/adgenesis/adgenesis/engine-go/internal/auth"
	"github.com/adgenesis/adgenesis/engine-go/internal/design"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

const maxDocumentSize = 5 << 20 // 5MB

// Documents loads stored designs for export.
type Documents interface {
	LoadDocument(ctx context.Context, designID, userID string) (*document.Document, int, error)
}

type Handler struct {
	docs     Documents
	renderer *Renderer
	maxScale float64
}

func NewHandler(docs Documents, renderer *Renderer, maxScale float64) *Handler {
	return &Handler{docs: docs, renderer: renderer, maxScale: maxScale}
}

// Export handles POST /api/designs/{designId}/export?format=png&scale=2. A document in
// the request body is exported instead of the stored one, so unsaved edits can be
// exported; the design must still belong to the caller.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	designID := mux.Vars(r)["designId"]

	format, err := ParseFormat(queryDefault(r, "format", string(FormatPNG)))
	if err != nil {
		http.Error(w, "invalid format: must be png, jpeg, svg or pdf", http.StatusBadRequest)
		return
	}
	scale, err := strconv.ParseFloat(queryDefault(r, "scale", "1"), 64)
	if err != nil || scale <= 0 || scale > h.maxScale {
		http.Error(w, fmt.Sprintf("invalid scale: must be in (0, %g]", h.maxScale), http.StatusBadRequest)
		return
	}

	doc, _, err := h.docs.LoadDocument(r.Context(), designID, userID)
	if err != nil {
		switch {
		case errors.Is(err, design.ErrNotFound):
			http.Error(w, "design not found", http.StatusNotFound)
		case errors.Is(err, design.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.Error("load design for export", "design", designID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		doc, err = document.Decode(body)
		if err != nil {
			http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	exportID := typeid.NewExportID()
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, doc, format, scale); err != nil {
		slog.Error("export failed", "export", exportID, "design", designID, "format", format, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	ext := string(format)
	if format == FormatJPEG {
		ext = "jpg"
	}
	slog.Info("design exported", "export", exportID, "design", designID, "format", format, "scale", scale, "bytes", buf.Len())

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, sanitize(designID), ext))
	w.Header().Set("X-Export-Id", exportID)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
