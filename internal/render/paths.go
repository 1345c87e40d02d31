package render

import "github.com/adgenesis/adgenesis/engine-go/internal/document"

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

// bezier approximation constant for quarter circles: 4 * (sqrt(2) - 1) / 3
const kappa = 0.5522847498

// shapePath generates the outline of a shape inside a w x h box anchored at the origin.
func shapePath(shape document.ShapeType, w, h, cornerRadius float64) []PathCommand {
	switch shape {
	case document.ShapeRect:
		if cornerRadius > 0 {
			return roundedRectPath(w, h, cornerRadius)
		}
		return rectPath(w, h)
	case document.ShapeCircle:
		return ellipsePath(w/2, h/2, w/2, h/2)
	case document.ShapeTriangle:
		return []PathCommand{
			{"M", w / 2, 0.0},
			{"L", w, h},
			{"L", 0.0, h},
			{"Z"},
		}
	case document.ShapeLine:
		return []PathCommand{
			{"M", 0.0, h / 2},
			{"L", w, h / 2},
		}
	}
	return nil
}

func rectPath(w, h float64) []PathCommand {
	return []PathCommand{
		{"M", 0.0, 0.0},
		{"L", w, 0.0},
		{"L", w, h},
		{"L", 0.0, h},
		{"Z"},
	}
}

func roundedRectPath(w, h, r float64) []PathCommand {
	r = min(r, w/2, h/2)
	k := r * kappa
	return []PathCommand{
		{"M", r, 0.0},
		{"L", w - r, 0.0},
		{"C", w - r + k, 0.0, w, r - k, w, r},
		{"L", w, h - r},
		{"C", w, h - r + k, w - r + k, h, w - r, h},
		{"L", r, h},
		{"C", r - k, h, 0.0, h - r + k, 0.0, h - r},
		{"L", 0.0, r},
		{"C", 0.0, r - k, r - k, 0.0, r, 0.0},
		{"Z"},
	}
}

// ellipsePath approximates an ellipse centred on (cx, cy) with four bezier curves.
func ellipsePath(cx, cy, rx, ry float64) []PathCommand {
	kx, ky := rx*kappa, ry*kappa
	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}
