// Package compliance checks a document against ad platform placement rules.
package compliance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

var (
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrUnsupportedFormat = errors.New("format not supported by platform")
)

type Platform string

const (
	PlatformMeta     Platform = "meta"
	PlatformGoogle   Platform = "google"
	PlatformLinkedIn Platform = "linkedin"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	IssueDimensions  = "dimensions"
	IssueTextMissing = "text_content"
	IssueTextRatio   = "text_ratio"
	IssueSafeZone    = "safe_zone"
	IssueOffCanvas   = "off_canvas"
)

type Issue struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	ElementID string   `json:"elementId,omitempty"`
}

type Report struct {
	Platform  Platform  `json:"platform"`
	Format    string    `json:"format"`
	Compliant bool      `json:"compliant"`
	Issues    []Issue   `json:"issues"`
	TextRatio float64   `json:"textRatio"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Rules are the placement requirements of one platform format. Margins are fractions of
// the canvas axis that text must keep clear of.
type Rules struct {
	Width        float64
	Height       float64
	MaxTextRatio float64
	RequireText  bool
	MarginX      float64
	MarginY      float64
}

var platformRules = map[Platform]map[string]Rules{
	PlatformMeta: {
		"square":    {Width: 1080, Height: 1080, MaxTextRatio: 0.2, RequireText: true, MarginX: 0.05, MarginY: 0.05},
		"landscape": {Width: 1200, Height: 628, MaxTextRatio: 0.2, RequireText: true, MarginX: 0.05, MarginY: 0.05},
		"portrait":  {Width: 1080, Height: 1350, MaxTextRatio: 0.2, RequireText: true, MarginX: 0.05, MarginY: 0.05},
		"story":     {Width: 1080, Height: 1920, MaxTextRatio: 0.2, RequireText: true, MarginX: 0.05, MarginY: 0.14},
	},
	PlatformGoogle: {
		"square":    {Width: 1200, Height: 1200, MarginX: 0.04, MarginY: 0.04},
		"landscape": {Width: 1200, Height: 628, MarginX: 0.04, MarginY: 0.04},
	},
	PlatformLinkedIn: {
		"square":    {Width: 1200, Height: 1200, MarginX: 0.05, MarginY: 0.05},
		"landscape": {Width: 1200, Height: 627, MarginX: 0.05, MarginY: 0.05},
	},
}

// Lookup returns the rules for a platform format.
func Lookup(platform Platform, format string) (Rules, error) {
	formats, ok := platformRules[platform]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	rules, ok := formats[format]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %s does not accept %q", ErrUnsupportedFormat, platform, format)
	}
	return rules, nil
}

// Formats lists the formats a platform accepts.
func Formats(platform Platform) []string {
	names := make([]string, 0, len(platformRules[platform]))
	for name := range platformRules[platform] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check validates doc against the rules of platform/format. Only errors make a report
// non-compliant; warnings are advisory.
func Check(doc *document.Document, platform Platform, format string) (*Report, error) {
	rules, err := Lookup(platform, format)
	if err != nil {
		return nil, err
	}

	report := &Report{Platform: platform, Format: format, Issues: []Issue{}, CheckedAt: time.Now().UTC()}
	canvas := doc.Canvas()
	if canvas.Width != rules.Width || canvas.Height != rules.Height {
		report.add(Issue{
			Type:     IssueDimensions,
			Message:  fmt.Sprintf("expected %gx%g, got %gx%g", rules.Width, rules.Height, canvas.Width, canvas.Height),
			Severity: SeverityError,
		})
	}

	bounds := canvas.Bounds()
	safe := geometry.Rect{
		X:      canvas.Width * rules.MarginX,
		Y:      canvas.Height * rules.MarginY,
		Width:  canvas.Width * (1 - 2*rules.MarginX),
		Height: canvas.Height * (1 - 2*rules.MarginY),
	}

	var textArea float64
	texts := 0
	for _, el := range doc.Elements() {
		if !el.Visible {
			continue
		}
		if outside(el.Bounds(), bounds) {
			report.add(Issue{
				Type:      IssueOffCanvas,
				Message:   fmt.Sprintf("%q is entirely outside the canvas", el.Name()),
				Severity:  SeverityWarning,
				ElementID: el.ID,
			})
			continue
		}

		text, ok := textBounds(el)
		if !ok {
			continue
		}
		texts++
		textArea += area(intersection(text, bounds))
		if !containsRect(safe, text) {
			report.add(Issue{
				Type:      IssueSafeZone,
				Message:   fmt.Sprintf("%q extends into the platform margin", el.Name()),
				Severity:  SeverityWarning,
				ElementID: el.ID,
			})
		}
	}

	if rules.RequireText && texts == 0 {
		report.add(Issue{Type: IssueTextMissing, Message: "no text found in design", Severity: SeverityWarning})
	}
	if total := area(bounds); total > 0 {
		report.TextRatio = math.Min(textArea/total, 1)
	}
	if rules.MaxTextRatio > 0 && report.TextRatio > rules.MaxTextRatio {
		report.add(Issue{
			Type:     IssueTextRatio,
			Message:  fmt.Sprintf("text covers %.0f%% of the canvas, limit is %.0f%%", report.TextRatio*100, rules.MaxTextRatio*100),
			Severity: SeverityWarning,
		})
	}

	report.Compliant = true
	for _, is := range report.Issues {
		if is.Severity == SeverityError {
			report.Compliant = false
			break
		}
	}
	return report, nil
}

func (r *Report) add(is Issue) {
	r.Issues = append(r.Issues, is)
}

// textBounds returns the design-space bounds of the text carried by el. For buttons this
// is the label only.
func textBounds(el document.Element) (geometry.Rect, bool) {
	switch c := el.Content.(type) {
	case document.TextContent:
		if c.Content == "" {
			return geometry.Rect{}, false
		}
		return el.Bounds(), true
	case document.ButtonContent:
		if c.Label.Content == "" {
			return geometry.Rect{}, false
		}
		_, label := c.Parts(el)
		return label.Bounds(), true
	}
	return geometry.Rect{}, false
}

func intersection(a, b geometry.Rect) geometry.Rect {
	x0, y0 := math.Max(a.X, b.X), math.Max(a.Y, b.Y)
	x1, y1 := math.Min(a.X+a.Width, b.X+b.Width), math.Min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return geometry.Rect{}
	}
	return geometry.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func outside(r, canvas geometry.Rect) bool {
	return r.X > canvas.X+canvas.Width || r.X+r.Width < canvas.X ||
		r.Y > canvas.Y+canvas.Height || r.Y+r.Height < canvas.Y
}

func containsRect(outer, inner geometry.Rect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.Width <= outer.X+outer.Width &&
		inner.Y+inner.Height <= outer.Y+outer.Height
}

func area(r geometry.Rect) float64 {
	return r.Width * r.Height
}
