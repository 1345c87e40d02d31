package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/adgenesis/adgenesis/engine-go/internal/auth"
	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/compliance"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "designs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := 0
	resolver := blueprint.NewResolver(
		blueprint.WithIDGenerator(func() string { n++; return fmt.Sprintf("el_%d", n) }),
		blueprint.WithLogger(logger),
	)
	return NewService(st, resolver, logger)
}

func headlineBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		Background: "#ffffff",
		Palette:    blueprint.Palette{Colors: map[string]string{"primary": "#1a1a2e"}, Fonts: map[string]string{"heading": "Inter"}},
		Placements: []blueprint.Placement{{
			Role:    blueprint.RoleHeadline,
			Box:     blueprint.Box{X: 10, Y: 20, W: 80, H: 15},
			Content: "Summer sale",
			Style:   blueprint.StyleRef{Color: "primary", Font: "heading"},
		}},
	}
}

func TestGenerateAndRetarget(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	d, err := s.Generate(ctx, "user_1", GenerateRequest{Name: "Sale", Format: "square", Blueprint: headlineBlueprint()})
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != 1 || d.Format != "square" || d.Width != 1080 {
		t.Fatalf("design = %+v", d.Design)
	}
	want := geometry.Rect{X: 108, Y: 216, Width: 864, Height: 162}
	if got := d.Document.At(0).Box(); got != want {
		t.Fatalf("headline box = %+v, want %+v", got, want)
	}

	r, err := s.Retarget(ctx, d.ID, "user_1", "landscape")
	if err != nil {
		t.Fatal(err)
	}
	if r.Version != 2 || r.Format != "landscape" || r.Document.Canvas().Width != 1200 {
		t.Fatalf("retargeted = %+v", r.Design)
	}
	if got := r.Document.At(0).Box().Width; got != 960 {
		t.Fatalf("retargeted headline width = %g", got)
	}

	list, err := s.List(ctx, "user_1")
	if err != nil || len(list) != 1 || list[0].Format != "landscape" {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestGenerateWarningsAndErrors(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	bp := headlineBlueprint()
	bp.Placements = append(bp.Placements, blueprint.Placement{
		Role: blueprint.RoleCTA, Box: blueprint.Box{X: 0, Y: 0, W: 50, H: 50},
	})
	d, err := s.Generate(ctx, "user_1", GenerateRequest{Name: "Sale", Width: 800, Height: 600, Blueprint: bp})
	if err != nil {
		t.Fatal(err)
	}
	if d.Format != FormatCustom || len(d.Warnings) != 1 || d.Warnings[0].Index != 1 {
		t.Fatalf("format = %q warnings = %+v", d.Format, d.Warnings)
	}

	if _, err := s.Generate(ctx, "user_1", GenerateRequest{Name: "x", Format: "billboard"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unknown format: %v", err)
	}
	if _, err := s.Generate(ctx, "user_1", GenerateRequest{Format: "square"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing name: %v", err)
	}
	if _, err := s.Generate(ctx, "user_1", GenerateRequest{Name: "x"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing size: %v", err)
	}
}

func TestOwnershipAndConflicts(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	d, err := s.Generate(ctx, "owner", GenerateRequest{Name: "Sale", Format: "square", Blueprint: headlineBlueprint()})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ctx, d.ID, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign get: %v", err)
	}
	if _, err := s.Get(ctx, "dsn_missing", "owner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get: %v", err)
	}

	moved, err := d.Document.Move(d.Document.At(0).ID, geometry.Point{X: 50, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := document.Encode(moved)
	if _, err := s.Update(ctx, d.ID, "owner", data, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.Update(ctx, d.ID, "owner", data, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update: %v", err)
	}
	if _, err := s.Update(ctx, d.ID, "owner", []byte(`{"canvas":{"width":-1}}`), 2); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("invalid document: %v", err)
	}

	doc, version, err := s.LoadDocument(ctx, d.ID, "owner")
	if err != nil || version != 2 || doc.At(0).Position != (geometry.Point{X: 50, Y: 50}) {
		t.Fatalf("load = %v %d %v", doc, version, err)
	}

	if err := s.Delete(ctx, d.ID, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := s.Delete(ctx, d.ID, "owner"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, d.ID, "owner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestCheckUsesDesignFormat(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	d, err := s.Generate(ctx, "u", GenerateRequest{Name: "Sale", Format: "square", Blueprint: headlineBlueprint()})
	if err != nil {
		t.Fatal(err)
	}
	report, err := s.Check(ctx, d.ID, "u", compliance.PlatformMeta)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Compliant || report.Format != "square" {
		t.Fatalf("report = %+v", report)
	}
	if _, err := s.Check(ctx, d.ID, "u", compliance.PlatformGoogle); err != nil {
		t.Fatalf("google square: %v", err)
	}
	if _, err := s.Check(ctx, d.ID, "u", "myspace"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unknown platform: %v", err)
	}
}

func newRouter(s *Service, userID string) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	NewHandler(s).Routes(api)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler(t *testing.T) {
	s := newService(t)
	h := newRouter(s, "user_1")

	rec := do(t, h, http.MethodPost, "/api/designs", GenerateRequest{Name: "Sale", Format: "square", Blueprint: headlineBlueprint()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate = %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string          `json:"id"`
		Version  int             `json:"version"`
		Document json.RawMessage `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	if rec := do(t, h, http.MethodGet, "/api/designs/"+created.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/designs", nil); rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/designs/"+created.ID, updateRequest{Document: created.Document, Version: 1}); rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPut, "/api/designs/"+created.ID, updateRequest{Document: created.Document, Version: 1}); rec.Code != http.StatusConflict {
		t.Fatalf("stale update = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/designs/"+created.ID+"/retarget", retargetRequest{Format: "nope"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad retarget = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/designs/"+created.ID+"/compliance?platform=meta", nil); rec.Code != http.StatusOK {
		t.Fatalf("compliance = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/api/formats", nil); rec.Code != http.StatusOK {
		t.Fatalf("formats = %d", rec.Code)
	}

	other := newRouter(s, "user_2")
	if rec := do(t, other, http.MethodDelete, "/api/designs/"+created.ID, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/designs/"+created.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/designs/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", rec.Code)
	}
}

type openSessions map[string]bool

func (o openSessions) IsOpen(designID string) bool { return o[designID] }

func TestWritesRefusedWhileSessionOpen(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	d, err := s.Generate(ctx, "user_1", GenerateRequest{Name: "Sale", Format: "square", Blueprint: headlineBlueprint()})
	if err != nil {
		t.Fatal(err)
	}
	open := openSessions{d.ID: true}
	s.UseSessions(open)
	h := newRouter(s, "user_1")

	data, _ := document.Encode(d.Document)
	if rec := do(t, h, http.MethodPut, "/api/designs/"+d.ID, updateRequest{Document: data, Version: 1}); rec.Code != http.StatusConflict {
		t.Fatalf("update while open = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/designs/"+d.ID+"/retarget", retargetRequest{Format: "landscape"}); rec.Code != http.StatusConflict {
		t.Fatalf("retarget while open = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/designs/"+d.ID, nil); rec.Code != http.StatusConflict {
		t.Fatalf("delete while open = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/designs/"+d.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("get while open = %d", rec.Code)
	}
	if _, v, err := s.LoadDocument(ctx, d.ID, "user_1"); err != nil || v != 1 {
		t.Fatalf("stored version = %d, %v", v, err)
	}
	if _, err := s.SaveDocument(ctx, d.ID, "user_1", d.Document, 1); err != nil {
		t.Fatalf("session save while open: %v", err)
	}

	delete(open, d.ID)
	if rec := do(t, h, http.MethodDelete, "/api/designs/"+d.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete after close = %d", rec.Code)
	}
}
