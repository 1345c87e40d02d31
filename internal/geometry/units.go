package geometry

import "math"

// Design space is the canonical coordinate system of a document. Display space is design
// space multiplied by the on-screen zoom; export space is design space multiplied by the
// export scale multiplier.
//
// Design coordinates live on a 1/1024 px grid. ToDisplay is the plain product p*zoom for
// any zoom; ToDesign divides and snaps back onto the grid, so for every grid point with
// |p| < 2^20 the round trip is exact and repeated zoom changes never drift.
const DesignQuantum = 1.0 / 1024

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the component-wise difference p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// IsFinite reports whether both dimensions are finite numbers.
func (s Size) IsFinite() bool {
	return isFinite(s.W) && isFinite(s.H)
}

// Quantize snaps v to the design-space grid.
func Quantize(v float64) float64 {
	if !isFinite(v) {
		return v
	}
	return math.Round(v*1024) / 1024
}

// QuantizePoint snaps both coordinates of p to the design-space grid.
func QuantizePoint(p Point) Point {
	return Point{X: Quantize(p.X), Y: Quantize(p.Y)}
}

// QuantizeSize snaps both dimensions of s to the design-space grid.
func QuantizeSize(s Size) Size {
	return Size{W: Quantize(s.W), H: Quantize(s.H)}
}

// ValidZoom reports whether zoom is a usable display factor: finite and positive.
func ValidZoom(zoom float64) bool {
	return isFinite(zoom) && zoom > 0
}

// ToDisplay converts a design-space point to display pixels at the given zoom.
func ToDisplay(p Point, zoom float64) Point {
	return Point{X: p.X * zoom, Y: p.Y * zoom}
}

// ToDesign converts a display-space point back to design space, landing on the design grid.
func ToDesign(p Point, zoom float64) Point {
	return QuantizePoint(Point{X: p.X / zoom, Y: p.Y / zoom})
}

// ToExport converts a design-space point to export pixels for the scale multiplier.
func ToExport(p Point, scale float64) Point {
	return Point{X: p.X * scale, Y: p.Y * scale}
}

// ToExportSize scales a design-space size by the export multiplier.
func ToExportSize(s Size, scale float64) Size {
	return Size{W: s.W * scale, H: s.H * scale}
}

// ToExportRect scales a design-space rect by the export multiplier.
func ToExportRect(r Rect, scale float64) Rect {
	return Rect{X: r.X * scale, Y: r.Y * scale, Width: r.Width * scale, Height: r.Height * scale}
}

// Resolve converts a percentage of an axis into design-space pixels.
// Percentages outside [0,100] are legal (off-canvas placement) and are not clamped.
// axisLength must be positive; callers validate canvas dimensions first.
func Resolve(percent, axisLength float64) float64 {
	return percent * axisLength / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
