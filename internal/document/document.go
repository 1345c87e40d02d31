package document

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

// Document is an immutable design snapshot: a canvas plus an ordered element list.
// Index 0 is painted first (bottom of the stack). Every mutating operation returns a new
// Document and leaves the receiver untouched, so snapshots can be shared freely between
// history, renderers and other goroutines.
type Document struct {
	canvas   Canvas
	elements []Element
}

// New validates canvas and elements and returns a document holding them in order.
func New(canvas Canvas, elements ...Element) (*Document, error) {
	if err := canvas.validate(); err != nil {
		return nil, err
	}
	d := &Document{canvas: canvas.clone(), elements: make([]Element, 0, len(elements))}
	seen := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		n, err := normalize(el)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = struct{}{}
		d.elements = append(d.elements, n)
	}
	return d, nil
}

func (c Canvas) clone() Canvas {
	c.Background = c.Background.clone()
	return c
}

// Canvas returns the document canvas.
func (d *Document) Canvas() Canvas {
	return d.canvas.clone()
}

// Elements returns a copy of the element list in paint order.
func (d *Document) Elements() []Element {
	return slices.Clone(d.elements)
}

// Len returns the number of elements.
func (d *Document) Len() int {
	return len(d.elements)
}

// At returns the element at paint index i.
func (d *Document) At(i int) Element {
	return d.elements[i]
}

// IndexOf returns the paint index of id, or -1.
func (d *Document) IndexOf(id string) int {
	return slices.IndexFunc(d.elements, func(el Element) bool { return el.ID == id })
}

// Element returns the element with the given id.
func (d *Document) Element(id string) (Element, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.elements[i], nil
}

// Has reports whether an element with id exists.
func (d *Document) Has(id string) bool {
	return d.IndexOf(id) >= 0
}

// AddElement appends el on top of the stack.
func (d *Document) AddElement(el Element) (*Document, error) {
	n, err := normalize(el)
	if err != nil {
		return nil, err
	}
	if d.Has(n.ID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	elements := make([]Element, len(d.elements), len(d.elements)+1)
	copy(elements, d.elements)
	return d.with(append(elements, n)), nil
}

// RemoveElement removes the element with the given id.
func (d *Document) RemoveElement(id string) (*Document, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	elements := make([]Element, 0, len(d.elements)-1)
	elements = append(elements, d.elements[:i]...)
	elements = append(elements, d.elements[i+1:]...)
	return d.with(elements), nil
}

// ReplaceElement swaps the element with the given id for el, keeping its paint index.
// An empty el.ID takes id; a different non-empty id is rejected.
func (d *Document) ReplaceElement(id string, el Element) (*Document, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if el.ID == "" {
		el.ID = id
	}
	if el.ID != id {
		return nil, fmt.Errorf("%w: replacement id %s does not match %s", ErrInvalidElement, el.ID, id)
	}
	n, err := normalize(el)
	if err != nil {
		return nil, err
	}
	elements := slices.Clone(d.elements)
	elements[i] = n
	return d.with(elements), nil
}

// Update applies fn to a copy of the element with the given id and replaces it.
func (d *Document) Update(id string, fn func(*Element)) (*Document, error) {
	el, err := d.Element(id)
	if err != nil {
		return nil, err
	}
	fn(&el)
	el.ID = id
	return d.ReplaceElement(id, el)
}

// Move sets the position of the element with the given id.
func (d *Document) Move(id string, pos geometry.Point) (*Document, error) {
	return d.Update(id, func(el *Element) { el.Position = pos })
}

// Reorder moves the element with the given id to newIndex, clamped to [0, Len-1]. The
// relative order of all other elements is preserved. Reordering to the current index
// returns the receiver.
func (d *Document) Reorder(id string, newIndex int) (*Document, error) {
	from := d.IndexOf(id)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	to := min(max(newIndex, 0), len(d.elements)-1)
	if to == from {
		return d, nil
	}

	el := d.elements[from]
	elements := make([]Element, 0, len(d.elements))
	elements = append(elements, d.elements[:from]...)
	elements = append(elements, d.elements[from+1:]...)
	elements = slices.Insert(elements, to, el)
	return d.with(elements), nil
}

// WithBackground returns a document with the canvas background replaced.
func (d *Document) WithBackground(bg Background) (*Document, error) {
	bg = bg.clone()
	if err := bg.validate(); err != nil {
		return nil, err
	}
	c := d.canvas
	c.Background = bg
	return &Document{canvas: c, elements: d.elements}, nil
}

// Equal reports structural equality of canvas and elements.
func (d *Document) Equal(other *Document) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return reflect.DeepEqual(d.canvas, other.canvas) && reflect.DeepEqual(d.elements, other.elements)
}

// with shares the canvas; elements must be a freshly allocated slice.
func (d *Document) with(elements []Element) *Document {
	return &Document{canvas: d.canvas, elements: elements}
}
