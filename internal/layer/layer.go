// Package layer implements z-order, visibility and lock operations. Each call is one
// document operation followed by one history commit.
package layer

import (
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/history"
)

// Layer is one row of a layers panel.
type Layer struct {
	ID      string        `json:"id"`
	Kind    document.Kind `json:"kind"`
	Name    string        `json:"name"`
	Index   int           `json:"index"`
	Visible bool          `json:"visible"`
	Locked  bool          `json:"locked"`
}

type Controller struct {
	history *history.Manager
}

func NewController(h *history.Manager) *Controller {
	return &Controller{history: h}
}

// BringToFront moves id to the top of the paint order.
func (c *Controller) BringToFront(id string) error {
	doc := c.history.Current()
	return c.reorder(doc, id, doc.Len()-1)
}

// SendToBack moves id to the bottom of the paint order.
func (c *Controller) SendToBack(id string) error {
	return c.reorder(c.history.Current(), id, 0)
}

// BringForward swaps id with the element directly above it.
func (c *Controller) BringForward(id string) error {
	doc := c.history.Current()
	return c.reorder(doc, id, doc.IndexOf(id)+1)
}

// SendBackward swaps id with the element directly below it.
func (c *Controller) SendBackward(id string) error {
	doc := c.history.Current()
	return c.reorder(doc, id, doc.IndexOf(id)-1)
}

// MoveTo places id at the given paint index (clamped).
func (c *Controller) MoveTo(id string, index int) error {
	return c.reorder(c.history.Current(), id, index)
}

func (c *Controller) SetVisible(id string, visible bool) error {
	return c.update(id, func(el *document.Element) { el.Visible = visible })
}

func (c *Controller) SetLocked(id string, locked bool) error {
	return c.update(id, func(el *document.Element) { el.Locked = locked })
}

// Layers lists the current elements top-most first.
func (c *Controller) Layers() []Layer {
	doc := c.history.Current()
	n := doc.Len()
	out := make([]Layer, 0, n)
	for i := n - 1; i >= 0; i-- {
		el := doc.At(i)
		out = append(out, Layer{
			ID:      el.ID,
			Kind:    el.Kind(),
			Name:    el.Name(),
			Index:   i,
			Visible: el.Visible,
			Locked:  el.Locked,
		})
	}
	return out
}

func (c *Controller) reorder(doc *document.Document, id string, index int) error {
	next, err := doc.Reorder(id, index)
	if err != nil {
		return err
	}
	c.history.Commit(next)
	return nil
}

func (c *Controller) update(id string, fn func(*document.Element)) error {
	doc := c.history.Current()
	el, err := doc.Element(id)
	if err != nil {
		return err
	}
	before := el
	fn(&el)
	if el == before {
		return nil
	}
	next, err := doc.ReplaceElement(id, el)
	if err != nil {
		return err
	}
	c.history.Commit(next)
	return nil
}
