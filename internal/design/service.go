// Package design exposes generated ad designs over HTTP: generation from a blueprint,
// retrieval, edits, retargeting to another format and platform compliance checks.
package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/compliance"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/store"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

var (
	ErrNotFound        = errors.New("design not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("design was modified concurrently")
	ErrInvalidDocument = errors.New("invalid document")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNoBlueprint     = errors.New("design has no blueprint")
	ErrDesignOpen      = errors.New("design is open in an editing session")
)

// FormatCustom marks designs generated for an explicit canvas size.
const FormatCustom = "custom"

// Sessions reports which designs are currently owned by an editing session.
type Sessions interface {
	IsOpen(designID string) bool
}

type Service struct {
	store    store.Store
	resolver *blueprint.Resolver
	sessions Sessions
	logger   *slog.Logger
}

func NewService(st store.Store, resolver *blueprint.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = blueprint.NewResolver(blueprint.WithLogger(logger))
	}
	return &Service{store: st, resolver: resolver, logger: logger}
}

// UseSessions makes Update, Retarget and Delete refuse designs that an editing session
// owns. The session saves through SaveDocument, which is not guarded.
func (s *Service) UseSessions(sessions Sessions) {
	s.sessions = sessions
}

type Design struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId"`
	Format    string  `json:"format"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Version   int     `json:"version"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Detail is a design with its document and, right after generation or retargeting,
// the placements that could not be resolved.
type Detail struct {
	Design
	Document  *document.Document   `json:"document"`
	Blueprint *blueprint.Blueprint `json:"blueprint,omitempty"`
	Warnings  []blueprint.Warning  `json:"warnings,omitempty"`
}

type GenerateRequest struct {
	Name      string              `json:"name"`
	Format    string              `json:"format"`
	Width     float64             `json:"width,omitempty"`
	Height    float64             `json:"height,omitempty"`
	Blueprint blueprint.Blueprint `json:"blueprint"`
}

// Generate resolves a blueprint into a new design owned by ownerID. Placements that
// cannot be resolved are returned as warnings; the design is still created.
func (s *Service) Generate(ctx context.Context, ownerID string, req GenerateRequest) (*Detail, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	res, format, err := s.resolve(req.Blueprint, req.Format, geometry.Size{W: req.Width, H: req.Height})
	if err != nil {
		return nil, err
	}

	docJSON, err := document.Encode(res.Document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	bpJSON, err := json.Marshal(req.Blueprint)
	if err != nil {
		return nil, fmt.Errorf("encode blueprint: %w", err)
	}

	rec := &store.Design{
		ID:        typeid.NewDesignID(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Format:    format,
		Document:  docJSON,
		Blueprint: bpJSON,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}

	s.logger.Info("design generated", "design", rec.ID, "format", format, "elements", res.Document.Len(), "warnings", len(res.Warnings))
	bp := req.Blueprint
	return &Detail{Design: toDesign(rec, res.Document), Document: res.Document, Blueprint: &bp, Warnings: res.Warnings}, nil
}

func (s *Service) resolve(bp blueprint.Blueprint, format string, size geometry.Size) (*blueprint.Result, string, error) {
	if format == "" || format == FormatCustom {
		if size.W <= 0 || size.H <= 0 {
			return nil, "", fmt.Errorf("%w: format or a positive width and height is required", ErrInvalidRequest)
		}
		res, err := s.resolver.Resolve(bp, size)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return res, FormatCustom, nil
	}

	res, err := s.resolver.ResolveFormat(bp, format)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	f, _ := document.LookupFormat(format)
	return res, f.Name, nil
}

func (s *Service) Get(ctx context.Context, designID, userID string) (*Detail, error) {
	rec, err := s.load(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	return toDetail(rec)
}

func (s *Service) List(ctx context.Context, userID string) ([]Design, error) {
	recs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}

	designs := make([]Design, 0, len(recs))
	for i := range recs {
		doc, err := document.Decode(recs[i].Document)
		if err != nil {
			s.logger.Warn("skipping undecodable design", "design", recs[i].ID, "error", err)
			continue
		}
		designs = append(designs, toDesign(&recs[i], doc))
	}
	return designs, nil
}

// Update replaces the document of a design. version must be the version the caller
// last read; a stale version yields ErrConflict.
func (s *Service) Update(ctx context.Context, designID, userID string, docJSON json.RawMessage, version int) (*Detail, error) {
	doc, err := document.Decode(docJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	rec, err := s.loadForWrite(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		rec.Version = version
	}
	if err := s.save(ctx, rec, doc); err != nil {
		return nil, err
	}
	return &Detail{Design: toDesign(rec, doc), Document: doc}, nil
}

// Retarget re-resolves the stored blueprint for another format. Absolute coordinates
// are never stretched; the whole layout is rebuilt from the percent boxes.
func (s *Service) Retarget(ctx context.Context, designID, userID, format string) (*Detail, error) {
	rec, err := s.loadForWrite(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	if len(rec.Blueprint) == 0 {
		return nil, ErrNoBlueprint
	}
	var bp blueprint.Blueprint
	if err := json.Unmarshal(rec.Blueprint, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}

	res, name, err := s.resolve(bp, format, geometry.Size{})
	if err != nil {
		return nil, err
	}
	rec.Format = name
	if err := s.save(ctx, rec, res.Document); err != nil {
		return nil, err
	}

	s.logger.Info("design retargeted", "design", rec.ID, "format", name, "warnings", len(res.Warnings))
	return &Detail{Design: toDesign(rec, res.Document), Document: res.Document, Blueprint: &bp, Warnings: res.Warnings}, nil
}

func (s *Service) Delete(ctx context.Context, designID, userID string) error {
	if _, err := s.loadForWrite(ctx, designID, userID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, designID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete design: %w", err)
	}
	return nil
}

// Check runs the compliance rules of platform against the design's current document.
func (s *Service) Check(ctx context.Context, designID, userID string, platform compliance.Platform) (*compliance.Report, error) {
	d, err := s.Get(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	report, err := compliance.Check(d.Document, platform, d.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return report, nil
}

// LoadDocument returns the current document and version of a design.
func (s *Service) LoadDocument(ctx context.Context, designID, userID string) (*document.Document, int, error) {
	rec, err := s.load(ctx, designID, userID)
	if err != nil {
		return nil, 0, err
	}
	doc, err := document.Decode(rec.Document)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, rec.Version, nil
}

// SaveDocument stores doc as the next version of a design and returns that version.
func (s *Service) SaveDocument(ctx context.Context, designID, userID string, doc *document.Document, version int) (int, error) {
	rec, err := s.load(ctx, designID, userID)
	if err != nil {
		return 0, err
	}
	rec.Version = version
	if err := s.save(ctx, rec, doc); err != nil {
		return 0, err
	}
	return rec.Version, nil
}

func (s *Service) load(ctx context.Context, designID, userID string) (*store.Design, error) {
	rec, err := s.store.Get(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	if rec.OwnerID != userID {
		return nil, ErrForbidden
	}
	return rec, nil
}

// loadForWrite is load for HTTP writes, which must not race an open editing session.
func (s *Service) loadForWrite(ctx context.Context, designID, userID string) (*store.Design, error) {
	rec, err := s.load(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil && s.sessions.IsOpen(designID) {
		return nil, ErrDesignOpen
	}
	return rec, nil
}

func (s *Service) save(ctx context.Context, rec *store.Design, doc *document.Document) error {
	data, err := document.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	rec.Document = data
	if err := s.store.Save(ctx, rec); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, store.ErrConflict):
			return ErrConflict
		}
		return fmt.Errorf("save design: %w", err)
	}
	return nil
}

func toDetail(rec *store.Design) (*Detail, error) {
	doc, err := document.Decode(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	d := &Detail{Design: toDesign(rec, doc), Document: doc}
	if len(rec.Blueprint) > 0 {
		var bp blueprint.Blueprint
		if err := json.Unmarshal(rec.Blueprint, &bp); err == nil {
			d.Blueprint = &bp
		}
	}
	return d, nil
}

func toDesign(rec *store.Design, doc *document.Document) Design {
	c := doc.Canvas()
	return Design{
		ID:        rec.ID,
		Name:      rec.Name,
		OwnerID:   rec.OwnerID,
		Format:    rec.Format,
		Width:     c.Width,
		Height:    c.Height,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
