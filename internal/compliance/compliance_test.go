package compliance

import (
	"errors"
	"testing"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

func text(id string, x, y, w, h float64) document.Element {
	return document.NewElement(id, geometry.Point{X: x, Y: y}, geometry.Size{W: w, H: h},
		document.TextContent{Content: "Summer sale", FontFamily: "Inter", FontSize: 64, Color: "#111"})
}

func shape(id string, x, y, w, h float64) document.Element {
	return document.NewElement(id, geometry.Point{X: x, Y: y}, geometry.Size{W: w, H: h},
		document.ShapeContent{Shape: document.ShapeRect, Fill: "#eee"})
}

func newDoc(t *testing.T, w, h float64, els ...document.Element) *document.Document {
	t.Helper()
	c, err := document.NewCanvas(w, h, document.Solid("#fff"))
	if err != nil {
		t.Fatal(err)
	}
	d, err := document.New(c, els...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func issueTypes(r *Report) map[string]int {
	out := map[string]int{}
	for _, is := range r.Issues {
		out[is.Type]++
	}
	return out
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		doc       func(t *testing.T) *document.Document
		platform  Platform
		format    string
		compliant bool
		issues    map[string]int
	}{
		{
			name: "clean square",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, shape("bg", 0, 0, 1080, 1080), text("h", 108, 216, 864, 162))
			},
			platform: PlatformMeta, format: "square",
			compliant: true, issues: map[string]int{},
		},
		{
			name: "wrong dimensions",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, text("h", 108, 216, 864, 162))
			},
			platform: PlatformGoogle, format: "square",
			compliant: false, issues: map[string]int{IssueDimensions: 1},
		},
		{
			name: "meta needs text",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, shape("s", 100, 100, 200, 200))
			},
			platform: PlatformMeta, format: "square",
			compliant: true, issues: map[string]int{IssueTextMissing: 1},
		},
		{
			name: "linkedin does not require text",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1200, 627)
			},
			platform: PlatformLinkedIn, format: "landscape",
			compliant: true, issues: map[string]int{},
		},
		{
			name: "text in the margin",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, text("h", 10, 216, 300, 100))
			},
			platform: PlatformMeta, format: "square",
			compliant: true, issues: map[string]int{IssueSafeZone: 1},
		},
		{
			name: "story keeps the top band clear",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1920, text("h", 108, 100, 864, 100))
			},
			platform: PlatformMeta, format: "story",
			compliant: true, issues: map[string]int{IssueSafeZone: 1},
		},
		{
			name: "too much text",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, text("a", 60, 60, 960, 400), text("b", 60, 500, 960, 100))
			},
			platform: PlatformMeta, format: "square",
			compliant: true, issues: map[string]int{IssueTextRatio: 1},
		},
		{
			name: "element off canvas",
			doc: func(t *testing.T) *document.Document {
				return newDoc(t, 1080, 1080, text("h", 108, 216, 864, 162), shape("gone", 2000, 0, 10, 10))
			},
			platform: PlatformMeta, format: "square",
			compliant: true, issues: map[string]int{IssueOffCanvas: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Check(tt.doc(t), tt.platform, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if r.Compliant != tt.compliant {
				t.Errorf("compliant = %v, want %v (%+v)", r.Compliant, tt.compliant, r.Issues)
			}
			got := issueTypes(r)
			if len(got) != len(tt.issues) {
				t.Fatalf("issues = %+v, want %v", r.Issues, tt.issues)
			}
			for typ, n := range tt.issues {
				if got[typ] != n {
					t.Errorf("%s: got %d, want %d", typ, got[typ], n)
				}
			}
		})
	}
}

func TestButtonLabelCountsAsText(t *testing.T) {
	btn := document.NewElement("cta", geometry.Point{X: 340, Y: 800}, geometry.Size{W: 400, H: 100},
		document.ButtonContent{
			Shape: document.ShapeContent{Shape: document.ShapeRect, Fill: "#f00"},
			Label: document.TextContent{Content: "Shop now", FontFamily: "Inter", FontSize: 40, Color: "#fff"},
		})
	r, err := Check(newDoc(t, 1080, 1080, btn), PlatformMeta, "square")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("issues = %+v", r.Issues)
	}
	want := 400.0 * 40 / (1080 * 1080)
	if r.TextRatio != want {
		t.Fatalf("text ratio = %g, want %g", r.TextRatio, want)
	}
}

func TestLookupErrors(t *testing.T) {
	if _, err := Check(newDoc(t, 10, 10), "tiktok", "square"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("unknown platform: %v", err)
	}
	if _, err := Check(newDoc(t, 10, 10), PlatformGoogle, "story"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unsupported format: %v", err)
	}
	if got := Formats(PlatformGoogle); len(got) != 2 || got[0] != "landscape" {
		t.Fatalf("formats = %v", got)
	}
}
