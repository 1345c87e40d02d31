package render

import (
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/snap"
)

const (
	guideColor     = "#ff3d7f"
	selectionColor = "#3d8bff"
)

// GuideCommands draws snap guides across the whole canvas. Guides are overlay only and
// never part of the document.
func GuideCommands(guides []snap.Guide, canvas geometry.Size, scale float64) []DrawCommand {
	out := geometry.Scale(scale, scale)
	commands := make([]DrawCommand, 0, len(guides))
	for _, g := range guides {
		var path []PathCommand
		if g.Orientation == snap.Vertical {
			path = []PathCommand{{"M", g.Position, 0.0}, {"L", g.Position, canvas.H}}
		} else {
			path = []PathCommand{{"M", 0.0, g.Position}, {"L", canvas.W, g.Position}}
		}
		commands = append(commands, DrawCommand{
			Op:          OpGuide,
			Transform:   out.ToSlice(),
			Path:        path,
			Stroke:      guideColor,
			StrokeWidth: 1 / scale,
			Opacity:     1,
		})
	}
	return commands
}

// SelectionCommand outlines the selection bounds.
func SelectionCommand(bounds geometry.Rect, scale float64) DrawCommand {
	out := geometry.Scale(scale, scale).Multiply(geometry.Translate(bounds.X, bounds.Y))
	b := geometry.ToExportRect(bounds, scale)
	return DrawCommand{
		Op:          OpSelection,
		Transform:   out.ToSlice(),
		Width:       bounds.Width,
		Height:      bounds.Height,
		Path:        rectPath(bounds.Width, bounds.Height),
		Stroke:      selectionColor,
		StrokeWidth: 1 / scale,
		Opacity:     1,
		Bounds:      &b,
	}
}
