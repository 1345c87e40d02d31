// Package snap computes alignment snapping and guides for an element being dragged.
// Everything here is a pure function of its inputs; guides are transient overlay data
// and are never stored in a document.
package snap

import (
	"math"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

const (
	DefaultThreshold   = 8
	DefaultGridSpacing = 10
)

type Orientation string

const (
	// Vertical guides are lines of constant x.
	Vertical Orientation = "vertical"
	// Horizontal guides are lines of constant y.
	Horizontal Orientation = "horizontal"
)

type GuideSource string

const (
	SourceCanvas  GuideSource = "canvas"
	SourceElement GuideSource = "element"
)

// Guide is an alignment line shown while dragging.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
	Source      GuideSource `json:"source"`
}

// Result is the snapped top-left position of the moving box and the guides to draw.
type Result struct {
	Position geometry.Point `json:"position"`
	Guides   []Guide        `json:"guides"`
	SnappedX bool           `json:"snappedX"`
	SnappedY bool           `json:"snappedY"`
}

// Options control snapping. A zero Threshold disables snapping entirely; a zero
// GridSpacing disables grid snapping.
type Options struct {
	Threshold   float64
	GridSpacing float64
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, GridSpacing: DefaultGridSpacing}
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options {
	return e.opts
}

// Snap adjusts the proposed box moving (X/Y is the proposed top-left). Each axis is
// resolved independently and the first rule that fits wins:
//
//  1. the box centre aligns to the canvas centre
//  2. the box start, centre or end aligns to a target centre (closest wins)
//  3. the box leading edge aligns to the nearest grid line
//
// Rules 1 and 2 emit a guide; grid snapping does not.
func (e *Engine) Snap(moving geometry.Rect, canvas geometry.Size, targets []geometry.Rect) Result {
	res := Result{Position: moving.Origin()}
	if e.opts.Threshold <= 0 {
		return res
	}

	centers := make([]float64, len(targets))
	for i, t := range targets {
		centers[i] = t.X + t.Width/2
	}
	if x, g, ok := e.axis(moving.X, moving.Width, canvas.W, centers); ok {
		res.Position.X, res.SnappedX = x, true
		if g != nil {
			g.Orientation = Vertical
			res.Guides = append(res.Guides, *g)
		}
	}

	for i, t := range targets {
		centers[i] = t.Y + t.Height/2
	}
	if y, g, ok := e.axis(moving.Y, moving.Height, canvas.H, centers); ok {
		res.Position.Y, res.SnappedY = y, true
		if g != nil {
			g.Orientation = Horizontal
			res.Guides = append(res.Guides, *g)
		}
	}
	return res
}

// axis snaps one axis. start/length describe the moving box along it.
func (e *Engine) axis(start, length, canvasLength float64, targetCenters []float64) (float64, *Guide, bool) {
	threshold := e.opts.Threshold
	half := length / 2

	canvasCenter := canvasLength / 2
	if math.Abs(start+half-canvasCenter) <= threshold {
		return canvasCenter - half, &Guide{Position: canvasCenter, Source: SourceCanvas}, true
	}

	best := math.Inf(1)
	var snapped float64
	var guide *Guide
	for _, c := range targetCenters {
		// start, centre and end of the moving box against the target centre
		for _, offset := range [3]float64{0, half, length} {
			d := math.Abs(start + offset - c)
			if d <= threshold && d < best {
				best = d
				snapped = c - offset
				guide = &Guide{Position: c, Source: SourceElement}
			}
		}
	}
	if guide != nil {
		return snapped, guide, true
	}

	if g := e.opts.GridSpacing; g > 0 {
		line := math.Round(start/g) * g
		if math.Abs(start-line) <= threshold {
			return line, nil, true
		}
	}
	return start, nil, false
}

// Targets returns the bounds of every visible element except the excluded ids. Locked
// elements are included: they cannot move but still attract others.
func Targets(doc *document.Document, exclude ...string) []geometry.Rect {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var out []geometry.Rect
	for _, el := range doc.Elements() {
		if !el.Visible {
			continue
		}
		if _, ok := skip[el.ID]; ok {
			continue
		}
		out = append(out, el.Bounds())
	}
	return out
}

// SnapElement snaps element id moved to the proposed position against the rest of doc.
// Rotated elements snap by their bounding box. A locked element is not snapped and the
// proposed position is returned as is.
func (e *Engine) SnapElement(doc *document.Document, id string, proposed geometry.Point) (Result, error) {
	el, err := doc.Element(id)
	if err != nil {
		return Result{}, err
	}
	if el.Locked {
		return Result{Position: proposed}, nil
	}

	bounds := el.Bounds()
	offset := bounds.Origin().Sub(el.Position)
	moving := bounds.MoveTo(proposed.Add(offset.X, offset.Y))

	res := e.Snap(moving, doc.Canvas().Size(), Targets(doc, id))
	res.Position = res.Position.Sub(offset)
	return res, nil
}
