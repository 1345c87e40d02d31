package document

import (
	"fmt"
	"regexp"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{4}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// IsColor reports whether s is a #rgb, #rgba, #rrggbb or #rrggbbaa hex color.
func IsColor(s string) bool {
	return colorPattern.MatchString(s)
}

// normalize validates el and snaps its geometry onto the design grid.
func normalize(el Element) (Element, error) {
	if el.ID == "" {
		return Element{}, fmt.Errorf("%w: empty id", ErrInvalidElement)
	}
	if el.Content == nil {
		return Element{}, fmt.Errorf("%w: %s has no content", ErrInvalidElement, el.ID)
	}
	if !el.Position.IsFinite() || !el.Size.IsFinite() || !isFinite(el.Rotation) {
		return Element{}, fmt.Errorf("%w: %s has non-finite geometry", ErrInvalidGeometry, el.ID)
	}
	if el.Size.W < 0 || el.Size.H < 0 {
		return Element{}, fmt.Errorf("%w: %s has negative size %gx%g", ErrInvalidGeometry, el.ID, el.Size.W, el.Size.H)
	}
	if !isFinite(el.Opacity) || el.Opacity < 0 || el.Opacity > 1 {
		return Element{}, fmt.Errorf("%w: %s opacity %g", ErrInvalidElement, el.ID, el.Opacity)
	}
	if err := el.Content.validate(); err != nil {
		return Element{}, fmt.Errorf("%s: %w", el.ID, err)
	}

	el.Position = geometry.QuantizePoint(el.Position)
	el.Size = geometry.QuantizeSize(el.Size)
	return el, nil
}
