package editor

import (
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/render"
	"github.com/adgenesis/adgenesis/engine-go/internal/snap"
)

// BeginDrag starts dragging the current selection from a display-space point. With an
// empty selection the element under the pointer is selected first.
func (s *Session) BeginDrag(display geometry.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := geometry.ToDesign(display, s.zoom)
	ids := s.selection.Selected()
	if len(ids) == 0 {
		if _, ok := s.selection.SelectAt(start, false); !ok {
			return ErrNothingToDrag
		}
		ids = s.selection.Selected()
	}
	bounds, ok := render.SelectionBounds(s.history.Current(), ids)
	if !ok {
		return ErrNothingToDrag
	}
	s.drag = &dragState{start: start, origin: bounds, ids: ids, current: bounds.Origin()}
	return nil
}

// DragTo moves the drag overlay to a display-space point and returns the snapped
// position of the selection bounds plus the guides to draw. The document is untouched.
func (s *Session) DragTo(display geometry.Point) (snap.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return snap.Result{}, ErrNotDragging
	}

	doc := s.history.Current()
	p := geometry.ToDesign(display, s.zoom)
	delta := p.Sub(s.drag.start)
	moving := s.drag.origin.Translate(delta.X, delta.Y)

	res := s.snap.Snap(moving, doc.Canvas().Size(), snap.Targets(doc, s.drag.ids...))
	s.drag.current = res.Position
	s.drag.guides = res.Guides
	return res, nil
}

// EndDrag commits the dragged position as one history step.
func (s *Session) EndDrag() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return ErrNotDragging
	}
	d := s.drag
	s.drag = nil
	if d.current == d.origin.Origin() {
		return nil
	}
	return s.selection.MoveTo(d.current)
}

// CancelDrag drops the overlay without touching the document.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
}

// Dragging reports whether a drag is in progress.
func (s *Session) Dragging() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drag != nil
}

// Guides returns the snap guides of the in-progress drag.
func (s *Session) Guides() []snap.Guide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.drag == nil {
		return nil
	}
	return append([]snap.Guide(nil), s.drag.guides...)
}

// preview returns the document as it would look with the drag applied. The result is a
// throwaway snapshot and is never committed.
func (s *Session) preview() *document.Document {
	doc := s.history.Current()
	if s.drag == nil {
		return doc
	}
	delta := s.drag.current.Sub(s.drag.origin.Origin())
	if delta == (geometry.Point{}) {
		return doc
	}
	for _, id := range s.drag.ids {
		next, err := doc.Update(id, func(el *document.Element) { el.Position = el.Position.Add(delta.X, delta.Y) })
		if err != nil {
			s.logger.Warn("drag preview skipped element", "id", id, "error", err)
			continue
		}
		doc = next
	}
	return doc
}
