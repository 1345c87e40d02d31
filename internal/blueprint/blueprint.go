// Package blueprint turns an abstract role-tagged layout into a concrete document.
package blueprint

import (
	"errors"
	"fmt"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
)

var (
	ErrUnresolvedPlacement = errors.New("unresolved placement")
	ErrUnknownFormat       = errors.New("unknown format")
)

type Role string

const (
	RoleHeadline        Role = "headline"
	RoleSubheadline     Role = "subheadline"
	RoleBody            Role = "body"
	RoleCTA             Role = "cta"
	RoleDecorativeShape Role = "decorative-shape"
	RoleImageSlot       Role = "image-slot"

	// RoleBackground tags warnings about the blueprint background.
	RoleBackground Role = "background"
)

// Box is a placement rectangle in percent of the canvas axes. Values outside [0,100]
// place content off-canvas and are kept as is.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Palette is the externally supplied set of named colors and fonts.
type Palette struct {
	Colors map[string]string `json:"colors"`
	Fonts  map[string]string `json:"fonts"`
}

// StyleRef picks colors and fonts for a placement. Color fields accept a palette key or a
// literal hex color; Font accepts a palette key or a literal family name.
type StyleRef struct {
	Color         string             `json:"color,omitempty"`
	Fill          string             `json:"fill,omitempty"`
	Stroke        string             `json:"stroke,omitempty"`
	StrokeWidth   float64            `json:"strokeWidth,omitempty"`
	CornerRadius  float64            `json:"cornerRadius,omitempty"`
	Font          string             `json:"font,omitempty"`
	FontSize      float64            `json:"fontSize,omitempty"`
	FontWeight    int                `json:"fontWeight,omitempty"`
	Align         document.TextAlign `json:"align,omitempty"`
	LineHeight    float64            `json:"lineHeight,omitempty"`
	LetterSpacing float64            `json:"letterSpacing,omitempty"`
}

// Placement is one role-tagged slot of the layout.
type Placement struct {
	Role        Role               `json:"role"`
	Box         Box                `json:"box"`
	Content     string             `json:"content,omitempty"`
	Style       StyleRef           `json:"style"`
	Rotation    float64            `json:"rotation,omitempty"`
	Opacity     *float64           `json:"opacity,omitempty"`
	Shape       document.ShapeType `json:"shape,omitempty"`
	SourceRef   string             `json:"sourceRef,omitempty"`
	AspectRatio float64            `json:"aspectRatio,omitempty"`
	Fit         document.ImageFit  `json:"fit,omitempty"`
}

// Blueprint is an ordered list of placements; earlier placements paint first.
type Blueprint struct {
	Background string      `json:"background,omitempty"`
	Palette    Palette     `json:"palette"`
	Placements []Placement `json:"placements"`
}

// Warning records a placement that was skipped. Index is -1 for the background.
type Warning struct {
	Index  int    `json:"index"`
	Role   Role   `json:"role"`
	Reason string `json:"reason"`
}

func (w Warning) Error() string {
	return fmt.Sprintf("placement %d (%s): %s", w.Index, w.Role, w.Reason)
}

func (w Warning) Unwrap() error {
	return ErrUnresolvedPlacement
}

// Result is a resolved document plus the placements that could not be resolved.
type Result struct {
	Document *document.Document `json:"-"`
	Warnings []Warning          `json:"warnings"`
}

var defaultFontSizes = map[Role]float64{
	RoleHeadline:    64,
	RoleSubheadline: 28,
	RoleBody:        18,
	RoleCTA:         24,
}

func isTextRole(r Role) bool {
	return r == RoleHeadline || r == RoleSubheadline || r == RoleBody
}
