package snap

import (
	"math"
	"testing"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

func shape(id string, x, y, w, h float64) document.Element {
	return document.NewElement(id, geometry.Point{X: x, Y: y}, geometry.Size{W: w, H: h},
		document.ShapeContent{Shape: document.ShapeRect, Fill: "#000"})
}

func newDoc(t *testing.T, els ...document.Element) *document.Document {
	t.Helper()
	c, err := document.NewCanvas(1080, 1080, document.Solid("#fff"))
	if err != nil {
		t.Fatal(err)
	}
	d, err := document.New(c, els...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSnapToElementCenter(t *testing.T) {
	doc := newDoc(t, shape("a", 450, 450, 100, 100), shape("b", 0, 0, 40, 40))
	e := New(DefaultOptions())

	res, err := e.SnapElement(doc, "b", geometry.Point{X: 498, Y: 710})
	if err != nil {
		t.Fatalf("SnapElement: %v", err)
	}
	if res.Position != (geometry.Point{X: 500, Y: 710}) {
		t.Fatalf("position = %+v, want (500,710)", res.Position)
	}
	if len(res.Guides) != 1 {
		t.Fatalf("guides = %+v, want exactly one", res.Guides)
	}
	if g := res.Guides[0]; g.Orientation != Vertical || g.Position != 500 || g.Source != SourceElement {
		t.Fatalf("guide = %+v", g)
	}
}

func TestSnapRules(t *testing.T) {
	canvas := geometry.Size{W: 1000, H: 1000}
	e := New(DefaultOptions())

	tests := []struct {
		name    string
		moving  geometry.Rect
		targets []geometry.Rect
		want    geometry.Point
		guides  int
	}{
		{
			name:   "canvas centre beats element centre",
			moving: geometry.Rect{X: 477, Y: 203, Width: 40, Height: 40},
			// the target centre at x=480 is also in range but the canvas centre has priority
			targets: []geometry.Rect{{X: 470, Y: 900, Width: 20, Height: 20}},
			want:    geometry.Point{X: 480, Y: 200},
			guides:  1,
		},
		{
			name:    "right edge to target centre",
			moving:  geometry.Rect{X: 153, Y: 777, Width: 50, Height: 10},
			targets: []geometry.Rect{{X: 200, Y: 0, Width: 10, Height: 10}},
			want:    geometry.Point{X: 155, Y: 780},
			guides:  1,
		},
		{
			name:    "closest target wins",
			moving:  geometry.Rect{X: 103, Y: 301, Width: 20, Height: 20},
			targets: []geometry.Rect{{X: 90, Y: 0, Width: 20, Height: 20}, {X: 92, Y: 0, Width: 20, Height: 20}},
			want:    geometry.Point{X: 102, Y: 300},
			guides:  1,
		},
		{
			name:   "grid only",
			moving: geometry.Rect{X: 23, Y: 67, Width: 10, Height: 10},
			want:   geometry.Point{X: 20, Y: 70},
			guides: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Snap(tt.moving, canvas, tt.targets)
			if res.Position != tt.want {
				t.Fatalf("position = %+v, want %+v", res.Position, tt.want)
			}
			if len(res.Guides) != tt.guides {
				t.Fatalf("guides = %+v", res.Guides)
			}
		})
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	e := New(Options{Threshold: 8})
	res := e.Snap(geometry.Rect{X: 472, Y: 0, Width: 40, Height: 40}, geometry.Size{W: 1000, H: 1000}, nil)
	if res.Position.X != 480 || !res.SnappedX {
		t.Fatalf("distance 8 should snap: %+v", res)
	}
	res = e.Snap(geometry.Rect{X: 471, Y: 0, Width: 40, Height: 40}, geometry.Size{W: 1000, H: 1000}, nil)
	if res.SnappedX {
		t.Fatalf("distance 9 should not snap: %+v", res)
	}
}

func TestZeroThresholdDisables(t *testing.T) {
	e := New(Options{GridSpacing: 10})
	moving := geometry.Rect{X: 3, Y: 3, Width: 10, Height: 10}
	res := e.Snap(moving, geometry.Size{W: 100, H: 100}, nil)
	if res.Position != moving.Origin() || res.SnappedX || res.SnappedY {
		t.Fatalf("snapping should be disabled: %+v", res)
	}
}

func TestTargetsSkipHiddenIncludeLocked(t *testing.T) {
	hidden := shape("hidden", 0, 0, 10, 10)
	hidden.Visible = false
	locked := shape("locked", 100, 100, 10, 10)
	locked.Locked = true
	doc := newDoc(t, hidden, locked, shape("self", 5, 5, 5, 5))

	got := Targets(doc, "self")
	if len(got) != 1 || got[0].X != 100 {
		t.Fatalf("targets = %+v", got)
	}
}

func TestLockedElementIsNotSnapped(t *testing.T) {
	a := shape("a", 450, 450, 100, 100)
	b := shape("b", 0, 0, 40, 40)
	b.Locked = true
	doc := newDoc(t, a, b)

	res, err := New(DefaultOptions()).SnapElement(doc, "b", geometry.Point{X: 498, Y: 713})
	if err != nil {
		t.Fatal(err)
	}
	if res.Position != (geometry.Point{X: 498, Y: 713}) || len(res.Guides) != 0 {
		t.Fatalf("locked element snapped: %+v", res)
	}
}

func TestRotatedElementSnapsByBounds(t *testing.T) {
	// 100x20 rotated 90deg has 20x100 bounds offset by (+40,-40) from its position.
	r := shape("r", 0, 0, 100, 20)
	r.Rotation = 90
	doc := newDoc(t, r)

	res, err := New(Options{Threshold: 8}).SnapElement(doc, "r", geometry.Point{X: 483, Y: 100})
	if err != nil {
		t.Fatal(err)
	}
	// bounds centre x = 483+50 = 533 is within 8 of 540
	if math.Abs(res.Position.X-490) > 1e-9 || !res.SnappedX {
		t.Fatalf("position = %+v", res.Position)
	}
}
