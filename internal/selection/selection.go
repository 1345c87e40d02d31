// Package selection tracks the active elements and applies group transforms to them.
package selection

import (
	"fmt"
	"math"
	"slices"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/history"
	"github.com/adgenesis/adgenesis/engine-go/internal/render"
)

// Controller holds the selected ids in selection order. Every mutating call composes the
// whole group transform into one new document and commits it once. A Controller is not
// safe for concurrent use; the owning editing session serializes access.
type Controller struct {
	history *history.Manager
	ids     []string
}

func NewController(h *history.Manager) *Controller {
	return &Controller{history: h}
}

// Select replaces the selection. Every id must exist and be unlocked.
func (c *Controller) Select(ids ...string) error {
	doc := c.history.Current()
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := selectable(doc, id); err != nil {
			return err
		}
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	c.ids = next
	return nil
}

// Toggle adds id to the selection, or removes it when already selected.
func (c *Controller) Toggle(id string) error {
	c.prune()
	if i := slices.Index(c.ids, id); i >= 0 {
		c.ids = slices.Delete(c.ids, i, i+1)
		return nil
	}
	if err := selectable(c.history.Current(), id); err != nil {
		return err
	}
	c.ids = append(c.ids, id)
	return nil
}

func (c *Controller) Clear() {
	c.ids = nil
}

// Selected returns the selected ids still present and unlocked in the current document.
func (c *Controller) Selected() []string {
	c.prune()
	return slices.Clone(c.ids)
}

func (c *Controller) IsSelected(id string) bool {
	c.prune()
	return slices.Contains(c.ids, id)
}

// SelectAt selects the topmost hittable element under p. With additive set the hit is
// toggled into the existing selection; a miss then leaves the selection alone. Without
// it the selection is replaced, and a miss clears it.
func (c *Controller) SelectAt(p geometry.Point, additive bool) (string, bool) {
	id, ok := render.HitTest(c.history.Current(), p)
	if !ok {
		if !additive {
			c.Clear()
		}
		return "", false
	}
	if additive {
		_ = c.Toggle(id)
	} else {
		c.ids = []string{id}
	}
	return id, true
}

// Bounds returns the union of the selected elements' bounds.
func (c *Controller) Bounds() (geometry.Rect, bool) {
	c.prune()
	return render.SelectionBounds(c.history.Current(), c.ids)
}

// MoveBy translates every selected element by (dx, dy).
func (c *Controller) MoveBy(dx, dy float64) error {
	if !isFinite(dx) || !isFinite(dy) {
		return fmt.Errorf("%w: move by (%g,%g)", document.ErrInvalidGeometry, dx, dy)
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	return c.apply(func(el *document.Element, _ geometry.Rect) {
		el.Position = el.Position.Add(dx, dy)
	})
}

// MoveTo translates the selection so its bounds' top-left lands on p.
func (c *Controller) MoveTo(p geometry.Point) error {
	b, ok := c.Bounds()
	if !ok {
		return nil
	}
	return c.MoveBy(p.X-b.X, p.Y-b.Y)
}

// ScaleBy scales the selection about its bounds' top-left. Positions, sizes, font sizes,
// stroke widths and corner radii scale together.
func (c *Controller) ScaleBy(factor float64) error {
	if !isFinite(factor) || factor <= 0 {
		return fmt.Errorf("%w: scale factor %g", document.ErrInvalidGeometry, factor)
	}
	if factor == 1 {
		return nil
	}
	return c.apply(func(el *document.Element, bounds geometry.Rect) {
		origin := bounds.Origin()
		rel := el.Position.Sub(origin)
		el.Position = origin.Add(rel.X*factor, rel.Y*factor)
		el.Size = geometry.Size{W: el.Size.W * factor, H: el.Size.H * factor}
		el.Content = scaleContent(el.Content, factor)
	})
}

// Delete removes every selected element in one commit and clears the selection.
func (c *Controller) Delete() error {
	c.prune()
	if len(c.ids) == 0 {
		return nil
	}
	doc := c.history.Current()
	for _, id := range c.ids {
		next, err := doc.RemoveElement(id)
		if err != nil {
			return err
		}
		doc = next
	}
	c.history.Commit(doc)
	c.ids = nil
	return nil
}

func (c *Controller) apply(fn func(*document.Element, geometry.Rect)) error {
	c.prune()
	if len(c.ids) == 0 {
		return nil
	}
	doc := c.history.Current()
	bounds, _ := render.SelectionBounds(doc, c.ids)
	for _, id := range c.ids {
		next, err := doc.Update(id, func(el *document.Element) { fn(el, bounds) })
		if err != nil {
			return err
		}
		doc = next
	}
	c.history.Commit(doc)
	return nil
}

// prune drops ids that were removed or locked since they were selected, for example
// after an undo.
func (c *Controller) prune() {
	doc := c.history.Current()
	c.ids = slices.DeleteFunc(c.ids, func(id string) bool {
		return selectable(doc, id) != nil
	})
}

func selectable(doc *document.Document, id string) error {
	el, err := doc.Element(id)
	if err != nil {
		return err
	}
	if el.Locked {
		return fmt.Errorf("%w: %s", document.ErrLocked, id)
	}
	return nil
}

func scaleContent(c document.Content, f float64) document.Content {
	switch v := c.(type) {
	case document.TextContent:
		return scaleText(v, f)
	case document.ShapeContent:
		return scaleShape(v, f)
	case document.ButtonContent:
		v.Shape = scaleShape(v.Shape, f)
		v.Label = scaleText(v.Label, f)
		return v
	}
	return c
}

func scaleText(t document.TextContent, f float64) document.TextContent {
	t.FontSize *= f
	t.LetterSpacing *= f
	return t
}

func scaleShape(s document.ShapeContent, f float64) document.ShapeContent {
	s.StrokeWidth *= f
	s.CornerRadius *= f
	return s
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
