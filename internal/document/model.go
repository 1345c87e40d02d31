package document

import (
	"fmt"
	"math"
	"slices"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

// BackgroundKind selects how the canvas background is painted.
type BackgroundKind string

const (
	BackgroundSolid  BackgroundKind = "solid"
	BackgroundLinear BackgroundKind = "linear"
)

// ColorStop is one stop of a linear gradient. Offset is in [0,1].
type ColorStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// LinearGradient paints along AngleDegrees using CSS conventions (0 = bottom to top,
// 90 = left to right, 180 = top to bottom).
type LinearGradient struct {
	AngleDegrees float64     `json:"angle"`
	Stops        []ColorStop `json:"stops"`
}

// Background is either a solid color or a linear gradient.
type Background struct {
	Kind     BackgroundKind  `json:"type"`
	Color    string          `json:"color,omitempty"`
	Gradient *LinearGradient `json:"gradient,omitempty"`
}

// Solid returns a solid background of the given color.
func Solid(color string) Background {
	return Background{Kind: BackgroundSolid, Color: color}
}

// Linear returns a linear gradient background.
func Linear(angle float64, stops ...ColorStop) Background {
	return Background{Kind: BackgroundLinear, Gradient: &LinearGradient{AngleDegrees: angle, Stops: stops}}
}

func (b Background) clone() Background {
	if b.Gradient != nil {
		g := *b.Gradient
		g.Stops = slices.Clone(g.Stops)
		b.Gradient = &g
	}
	return b
}

func (b Background) validate() error {
	switch b.Kind {
	case BackgroundSolid, "":
		if b.Gradient != nil {
			return fmt.Errorf("%w: solid background carries a gradient", ErrInvalidBackground)
		}
		if b.Color != "" && !IsColor(b.Color) {
			return fmt.Errorf("%w: bad color %q", ErrInvalidBackground, b.Color)
		}
	case BackgroundLinear:
		g := b.Gradient
		if g == nil || len(g.Stops) < 2 {
			return fmt.Errorf("%w: gradient needs at least two stops", ErrInvalidBackground)
		}
		if !isFinite(g.AngleDegrees) {
			return fmt.Errorf("%w: gradient angle is not finite", ErrInvalidBackground)
		}
		prev := 0.0
		for i, s := range g.Stops {
			if !isFinite(s.Offset) || s.Offset < 0 || s.Offset > 1 || s.Offset < prev {
				return fmt.Errorf("%w: stop %d offset %g", ErrInvalidBackground, i, s.Offset)
			}
			if !IsColor(s.Color) {
				return fmt.Errorf("%w: stop %d color %q", ErrInvalidBackground, i, s.Color)
			}
			prev = s.Offset
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBackground, b.Kind)
	}
	return nil
}

// Canvas is the fixed-size drawing area of a design. Dimensions are set once at creation;
// changing them means resolving the blueprint again.
type Canvas struct {
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background Background `json:"background"`
}

// NewCanvas validates the dimensions and background and returns the canvas.
func NewCanvas(width, height float64, bg Background) (Canvas, error) {
	c := Canvas{Width: width, Height: height, Background: bg.clone()}
	if err := c.validate(); err != nil {
		return Canvas{}, err
	}
	return c, nil
}

// Size returns the canvas dimensions.
func (c Canvas) Size() geometry.Size {
	return geometry.Size{W: c.Width, H: c.Height}
}

// Bounds returns the canvas as a rect anchored at the origin.
func (c Canvas) Bounds() geometry.Rect {
	return geometry.Rect{Width: c.Width, Height: c.Height}
}

func (c Canvas) validate() error {
	if !isFinite(c.Width) || !isFinite(c.Height) || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: canvas %gx%g", ErrInvalidGeometry, c.Width, c.Height)
	}
	return c.Background.validate()
}

// Kind discriminates element content.
type Kind string

const (
	KindText   Kind = "text"
	KindShape  Kind = "shape"
	KindImage  Kind = "image"
	KindButton Kind = "button"
)

// Content is the kind-specific payload of an element. Implementations are value types so
// an Element can be copied freely.
type Content interface {
	Kind() Kind
	validate() error
}

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type TextContent struct {
	Content       string    `json:"content"`
	FontFamily    string    `json:"fontFamily"`
	FontSize      float64   `json:"fontSize"`
	FontWeight    int       `json:"fontWeight,omitempty"`
	Color         string    `json:"color"`
	Align         TextAlign `json:"align,omitempty"`
	LineHeight    float64   `json:"lineHeight,omitempty"`
	LetterSpacing float64   `json:"letterSpacing,omitempty"`
}

func (TextContent) Kind() Kind { return KindText }

func (t TextContent) validate() error {
	if !isFinite(t.FontSize) || t.FontSize < 0 {
		return fmt.Errorf("%w: font size %g", ErrInvalidElement, t.FontSize)
	}
	if !isFinite(t.LineHeight) || t.LineHeight < 0 || !isFinite(t.LetterSpacing) {
		return fmt.Errorf("%w: text spacing", ErrInvalidElement)
	}
	switch t.Align {
	case "", AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("%w: text align %q", ErrInvalidElement, t.Align)
	}
	return nil
}

type ShapeType string

const (
	ShapeRect     ShapeType = "rect"
	ShapeCircle   ShapeType = "circle"
	ShapeTriangle ShapeType = "triangle"
	ShapeLine     ShapeType = "line"
)

type ShapeContent struct {
	Shape        ShapeType `json:"shape"`
	Fill         string    `json:"fill,omitempty"`
	Stroke       string    `json:"stroke,omitempty"`
	StrokeWidth  float64   `json:"strokeWidth,omitempty"`
	CornerRadius float64   `json:"cornerRadius,omitempty"`
}

func (ShapeContent) Kind() Kind { return KindShape }

func (s ShapeContent) validate() error {
	switch s.Shape {
	case ShapeRect, ShapeCircle, ShapeTriangle, ShapeLine:
	default:
		return fmt.Errorf("%w: shape type %q", ErrInvalidElement, s.Shape)
	}
	if !isFinite(s.StrokeWidth) || s.StrokeWidth < 0 {
		return fmt.Errorf("%w: stroke width %g", ErrInvalidElement, s.StrokeWidth)
	}
	if !isFinite(s.CornerRadius) || s.CornerRadius < 0 {
		return fmt.Errorf("%w: corner radius %g", ErrInvalidElement, s.CornerRadius)
	}
	if s.CornerRadius > 0 && s.Shape != ShapeRect {
		return fmt.Errorf("%w: corner radius on %s", ErrInvalidElement, s.Shape)
	}
	return nil
}

type ImageFit string

const (
	FitCover   ImageFit = "cover"
	FitContain ImageFit = "contain"
	FitFill    ImageFit = "fill"
)

type ImageContent struct {
	SourceRef   string   `json:"sourceRef"`
	AspectRatio float64  `json:"aspectRatio,omitempty"`
	Fit         ImageFit `json:"fit,omitempty"`
}

func (ImageContent) Kind() Kind { return KindImage }

func (i ImageContent) validate() error {
	if !isFinite(i.AspectRatio) || i.AspectRatio < 0 {
		return fmt.Errorf("%w: aspect ratio %g", ErrInvalidElement, i.AspectRatio)
	}
	switch i.Fit {
	case "", FitCover, FitContain, FitFill:
	default:
		return fmt.Errorf("%w: image fit %q", ErrInvalidElement, i.Fit)
	}
	return nil
}

// ButtonContent is a call-to-action: a shape with a centred label. Both parts live in one
// element so they share position, visibility and lock state.
type ButtonContent struct {
	Shape ShapeContent `json:"shape"`
	Label TextContent  `json:"label"`
}

func (ButtonContent) Kind() Kind { return KindButton }

func (b ButtonContent) validate() error {
	if err := b.Shape.validate(); err != nil {
		return err
	}
	return b.Label.validate()
}

// Parts expands a button element into its shape and label elements. The label is
// vertically centred in the box and spans its full width.
func (b ButtonContent) Parts(el Element) (Element, Element) {
	shape := el
	shape.Content = b.Shape

	label := el
	lc := b.Label
	if lc.Align == "" {
		lc.Align = AlignCenter
	}
	label.Content = lc
	label.Position.Y = el.Position.Y + (el.Size.H-lc.FontSize)/2
	label.Size.H = lc.FontSize
	return shape, label
}

// Element is one visual layer of a design.
type Element struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Rotation float64        `json:"rotation"`
	Opacity  float64        `json:"opacity"`
	Visible  bool           `json:"visible"`
	Locked   bool           `json:"locked"`
	Content  Content        `json:"-"`
}

// NewElement returns a visible, unlocked, fully opaque element.
func NewElement(id string, pos geometry.Point, size geometry.Size, content Content) Element {
	return Element{
		ID:       id,
		Position: pos,
		Size:     size,
		Opacity:  1,
		Visible:  true,
		Content:  content,
	}
}

// Kind returns the content kind, or "" when the element has no content.
func (e Element) Kind() Kind {
	if e.Content == nil {
		return ""
	}
	return e.Content.Kind()
}

// Box returns the unrotated box of the element.
func (e Element) Box() geometry.Rect {
	return geometry.RectFrom(e.Position, e.Size)
}

// Bounds returns the axis-aligned bounds of the element including rotation.
func (e Element) Bounds() geometry.Rect {
	return geometry.Bounds(e.Position, e.Size, e.Rotation)
}

// Transform maps the element's local box space to design space.
func (e Element) Transform() geometry.Matrix2D {
	return geometry.ElementTransform(e.Position, e.Size, e.Rotation)
}

// Name is a short human label for layer lists.
func (e Element) Name() string {
	switch c := e.Content.(type) {
	case TextContent:
		return truncate(c.Content, 32)
	case ButtonContent:
		return truncate(c.Label.Content, 32)
	case ShapeContent:
		return string(c.Shape)
	case ImageContent:
		return "image"
	}
	return string(e.Kind())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
