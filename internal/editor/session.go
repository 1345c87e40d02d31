// Package editor wires the document, history, layer, selection and snap components into
// one editing session for a single document.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/history"
	"github.com/adgenesis/adgenesis/engine-go/internal/layer"
	"github.com/adgenesis/adgenesis/engine-go/internal/render"
	"github.com/adgenesis/adgenesis/engine-go/internal/selection"
	"github.com/adgenesis/adgenesis/engine-go/internal/snap"
)

var (
	ErrNothingToDrag = errors.New("nothing to drag")
	ErrNotDragging   = errors.New("no drag in progress")
)

type Options struct {
	Snap         snap.Options
	HistoryLimit int
	Resolver     *blueprint.Resolver
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{Snap: snap.DefaultOptions(), HistoryLimit: history.DefaultCapacity}
}

// Session is the single writer for one document. Observers may read the current
// snapshot concurrently through Document, Render and State; mutations are serialized.
type Session struct {
	mu sync.RWMutex

	history   *history.Manager
	layers    *layer.Controller
	selection *selection.Controller
	snap      *snap.Engine
	resolver  *blueprint.Resolver
	logger    *slog.Logger

	zoom float64
	drag *dragState
}

// dragState is the transient overlay of an in-progress drag. It is never committed until
// the drag ends.
type dragState struct {
	start   geometry.Point
	origin  geometry.Rect
	ids     []string
	current geometry.Point
	guides  []snap.Guide
}

func New(doc *document.Document, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = blueprint.NewResolver(blueprint.WithLogger(opts.Logger))
	}
	h := history.New(doc, history.WithCapacity(opts.HistoryLimit))
	return &Session{
		history:   h,
		layers:    layer.NewController(h),
		selection: selection.NewController(h),
		snap:      snap.New(opts.Snap),
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		zoom:      1,
	}
}

// Document returns the current immutable snapshot.
func (s *Session) Document() *document.Document {
	return s.history.Current()
}

// Load starts over from doc with a fresh history.
func (s *Session) Load(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset(doc)
	s.selection.Clear()
	s.drag = nil
}

// ReplaceDocument swaps in doc as one undoable step. Results of asynchronous work
// (blueprint resolution, image loading) are applied this way so observers never see a
// half-updated document.
func (s *Session) ReplaceDocument(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	s.history.Commit(doc)
}

// Retarget re-resolves bp for a new canvas size and replaces the document. Existing
// absolute coordinates are never stretched.
func (s *Session) Retarget(bp blueprint.Blueprint, size geometry.Size) (*blueprint.Result, error) {
	res, err := s.resolver.Resolve(bp, size)
	if err != nil {
		return nil, fmt.Errorf("retarget: %w", err)
	}
	s.ReplaceDocument(res.Document)
	s.logger.Info("design retargeted", "width", size.W, "height", size.H, "warnings", len(res.Warnings))
	return res, nil
}

// Edit applies fn to the current document and commits the result as one step.
func (s *Session) Edit(fn func(*document.Document) (*document.Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.history.Current())
	if err != nil {
		return err
	}
	s.drag = nil
	s.history.Commit(next)
	return nil
}

func (s *Session) AddElement(el document.Element) error {
	return s.Edit(func(d *document.Document) (*document.Document, error) { return d.AddElement(el) })
}

func (s *Session) RemoveElement(id string) error {
	return s.Edit(func(d *document.Document) (*document.Document, error) { return d.RemoveElement(id) })
}

func (s *Session) ReplaceElement(id string, el document.Element) error {
	return s.Edit(func(d *document.Document) (*document.Document, error) { return d.ReplaceElement(id, el) })
}

func (s *Session) SetBackground(bg document.Background) error {
	return s.Edit(func(d *document.Document) (*document.Document, error) { return d.WithBackground(bg) })
}

// WithLayers runs fn against the layer controller under the session lock.
func (s *Session) WithLayers(fn func(*layer.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	return fn(s.layers)
}

// WithSelection runs fn against the selection controller under the session lock.
func (s *Session) WithSelection(fn func(*selection.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	return fn(s.selection)
}

// Layers lists the current layers top-most first.
func (s *Session) Layers() []layer.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layers.Layers()
}

// Selected returns the current selection.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Selected()
}

// Undo steps back one snapshot; at the oldest snapshot it is a no-op.
func (s *Session) Undo() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	return s.history.Undo()
}

// Redo steps forward one snapshot; at the newest snapshot it is a no-op.
func (s *Session) Redo() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	return s.history.Redo()
}

// SetZoom sets the display zoom and returns the zoom in effect. Non-finite or
// non-positive values leave the current zoom unchanged.
func (s *Session) SetZoom(z float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if geometry.ValidZoom(z) {
		s.zoom = z
	}
	return s.zoom
}

func (s *Session) Zoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoom
}

// ToDesign converts a display-space point at the current zoom into design space.
func (s *Session) ToDesign(p geometry.Point) geometry.Point {
	return geometry.ToDesign(p, s.Zoom())
}

// HitTest returns the topmost selectable element under a display-space point.
func (s *Session) HitTest(display geometry.Point) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return render.HitTest(s.history.Current(), geometry.ToDesign(display, s.zoom))
}

// SelectAt hit tests a display-space point and updates the selection.
func (s *Session) SelectAt(display geometry.Point, additive bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
	return s.selection.SelectAt(geometry.ToDesign(display, s.zoom), additive)
}

// State summarizes the session for clients.
type State struct {
	Document  *document.Document `json:"document"`
	Selection []string           `json:"selection"`
	Layers    []layer.Layer      `json:"layers"`
	Zoom      float64            `json:"zoom"`
	CanUndo   bool               `json:"canUndo"`
	CanRedo   bool               `json:"canRedo"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Document:  s.history.Current(),
		Selection: s.selection.Selected(),
		Layers:    s.layers.Layers(),
		Zoom:      s.zoom,
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
	}
}
