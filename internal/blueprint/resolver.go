package blueprint

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

const defaultBackground = "#ffffff"

// Option configures a Resolver.
type Option func(*Resolver)

// WithIDGenerator replaces the element id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Resolver) { r.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// Resolver converts blueprints into documents. It holds no per-call state and is safe for
// concurrent use as long as the id generator is.
type Resolver struct {
	newID  func() string
	logger *slog.Logger
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{newID: typeid.NewElementID, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve lays bp out on a canvas of the given size. Placements that cannot be satisfied
// are skipped and reported as warnings; only an invalid canvas size is an error.
func (r *Resolver) Resolve(bp Blueprint, size geometry.Size) (*Result, error) {
	res := &Result{}

	bg, warn := r.background(bp)
	if warn != nil {
		res.Warnings = append(res.Warnings, *warn)
		bg = document.Solid(defaultBackground)
	}
	canvas, err := document.NewCanvas(size.W, size.H, bg)
	if err != nil {
		return nil, err
	}

	doc, err := document.New(canvas)
	if err != nil {
		return nil, err
	}
	for i, p := range bp.Placements {
		el, reason := r.placement(bp.Palette, p, size)
		if reason == "" {
			next, err := doc.AddElement(el)
			if err == nil {
				doc = next
				continue
			}
			reason = err.Error()
		}
		r.logger.Warn("skipping placement", "index", i, "role", p.Role, "reason", reason)
		res.Warnings = append(res.Warnings, Warning{Index: i, Role: p.Role, Reason: reason})
	}
	res.Document = doc
	return res, nil
}

// ResolveFormat resolves bp against a named canvas preset.
func (r *Resolver) ResolveFormat(bp Blueprint, format string) (*Result, error) {
	f, ok := document.LookupFormat(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return r.Resolve(bp, f.Size())
}

func (r *Resolver) background(bp Blueprint) (document.Background, *Warning) {
	expr := strings.TrimSpace(bp.Background)
	if expr == "" {
		return document.Solid(defaultBackground), nil
	}
	if c, ok := bp.Palette.Colors[expr]; ok {
		expr = c
	}
	bg, err := document.ParseBackground(expr)
	if err != nil {
		return document.Background{}, &Warning{Index: -1, Role: RoleBackground, Reason: err.Error()}
	}
	return bg, nil
}

// placement builds the element for p, or returns the reason it cannot.
func (r *Resolver) placement(pal Palette, p Placement, size geometry.Size) (document.Element, string) {
	box := p.Box
	pos := geometry.Point{X: geometry.Resolve(box.X, size.W), Y: geometry.Resolve(box.Y, size.H)}
	sz := geometry.Size{W: geometry.Resolve(box.W, size.W), H: geometry.Resolve(box.H, size.H)}
	if !pos.IsFinite() || !sz.IsFinite() || sz.W < 0 || sz.H < 0 {
		return document.Element{}, fmt.Sprintf("invalid box %+v", box)
	}

	var content document.Content
	switch {
	case isTextRole(p.Role):
		text, reason := resolveText(pal, p)
		if reason != "" {
			return document.Element{}, reason
		}
		content = text
	case p.Role == RoleCTA:
		if strings.TrimSpace(p.Content) == "" {
			return document.Element{}, "cta has no label"
		}
		fill, ok := resolveColor(pal, p.Style.Fill)
		if !ok {
			return document.Element{}, fmt.Sprintf("cta fill %q not resolvable", p.Style.Fill)
		}
		label, reason := resolveText(pal, p)
		if reason != "" {
			return document.Element{}, reason
		}
		if label.Align == "" {
			label.Align = document.AlignCenter
		}
		shape := document.ShapeContent{Shape: document.ShapeRect, Fill: fill, CornerRadius: p.Style.CornerRadius}
		if p.Shape != "" {
			shape.Shape = p.Shape
		}
		content = document.ButtonContent{Shape: shape, Label: label}
	case p.Role == RoleDecorativeShape:
		fill, ok := resolveColor(pal, p.Style.Fill)
		if !ok {
			return document.Element{}, fmt.Sprintf("shape fill %q not resolvable", p.Style.Fill)
		}
		shape := document.ShapeContent{
			Shape:        p.Shape,
			Fill:         fill,
			StrokeWidth:  p.Style.StrokeWidth,
			CornerRadius: p.Style.CornerRadius,
		}
		if shape.Shape == "" {
			shape.Shape = document.ShapeRect
		}
		if p.Style.Stroke != "" {
			stroke, ok := resolveColor(pal, p.Style.Stroke)
			if !ok {
				return document.Element{}, fmt.Sprintf("shape stroke %q not resolvable", p.Style.Stroke)
			}
			shape.Stroke = stroke
		}
		content = shape
	case p.Role == RoleImageSlot:
		img := document.ImageContent{SourceRef: p.SourceRef, AspectRatio: p.AspectRatio, Fit: p.Fit}
		if img.Fit == "" {
			img.Fit = document.FitCover
		}
		content = img
	default:
		return document.Element{}, fmt.Sprintf("unknown role %q", p.Role)
	}

	el := document.NewElement(r.newID(), pos, sz, content)
	el.Rotation = p.Rotation
	if p.Opacity != nil {
		el.Opacity = *p.Opacity
	}
	return el, ""
}

func resolveText(pal Palette, p Placement) (document.TextContent, string) {
	color, ok := resolveColor(pal, p.Style.Color)
	if !ok {
		return document.TextContent{}, fmt.Sprintf("text color %q not resolvable", p.Style.Color)
	}
	font := resolveFont(pal, p.Style.Font)
	if font == "" {
		return document.TextContent{}, "missing font"
	}
	size := p.Style.FontSize
	if size == 0 {
		size = defaultFontSizes[p.Role]
	}
	return document.TextContent{
		Content:       p.Content,
		FontFamily:    font,
		FontSize:      size,
		FontWeight:    p.Style.FontWeight,
		Color:         color,
		Align:         p.Style.Align,
		LineHeight:    p.Style.LineHeight,
		LetterSpacing: p.Style.LetterSpacing,
	}, ""
}

// resolveColor maps a palette key or literal hex color to a hex color.
func resolveColor(pal Palette, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "#") {
		return ref, document.IsColor(ref)
	}
	c, ok := pal.Colors[ref]
	if !ok || !document.IsColor(c) {
		return "", false
	}
	return c, true
}

// resolveFont maps a palette key to a family name; unknown keys are used as family names.
func resolveFont(pal Palette, ref string) string {
	ref = strings.TrimSpace(ref)
	if f, ok := pal.Fonts[ref]; ok {
		return f
	}
	return ref
}
