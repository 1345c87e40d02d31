// Package render compiles documents into flat draw command buffers for the browser
// canvas and the export backend.
package render

import (
	"encoding/json"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

const (
	OpBackground = "background"
	OpPath       = "path"
	OpText       = "text"
	OpImage      = "image"
	OpGuide      = "guide"
	OpSelection  = "selection"
)

// DrawCommand represents a single drawing operation. Transform maps the command's local
// box space (origin at the box's top-left, Width x Height in design units) to output pixels;
// it already includes the output scale.
type DrawCommand struct {
	Op          string                   `json:"op"`
	ObjectID    string                   `json:"objectId,omitempty"`
	Transform   []float64                `json:"transform,omitempty"`
	Width       float64                  `json:"width,omitempty"`
	Height      float64                  `json:"height,omitempty"`
	Path        []PathCommand            `json:"path,omitempty"`
	Fill        string                   `json:"fill,omitempty"`
	Gradient    *document.LinearGradient `json:"gradient,omitempty"`
	Stroke      string                   `json:"stroke,omitempty"`
	StrokeWidth float64                  `json:"strokeWidth,omitempty"`
	Opacity     float64                  `json:"opacity"`
	Text        *TextRun                 `json:"text,omitempty"`
	ImageRef    string                   `json:"imageRef,omitempty"`
	ImageAspect float64                  `json:"imageAspect,omitempty"`
	ImageFit    document.ImageFit        `json:"imageFit,omitempty"`
	Bounds      *geometry.Rect           `json:"bounds,omitempty"`
}

// TextRun is the text payload of a text command, laid out inside the local box.
type TextRun struct {
	Content       string             `json:"content"`
	FontFamily    string             `json:"fontFamily"`
	FontSize      float64            `json:"fontSize"`
	FontWeight    int                `json:"fontWeight,omitempty"`
	Color         string             `json:"color"`
	Align         document.TextAlign `json:"align,omitempty"`
	LineHeight    float64            `json:"lineHeight,omitempty"`
	LetterSpacing float64            `json:"letterSpacing,omitempty"`
}

// CompileDrawCommands generates the command buffer for doc at the given output scale
// (zoom for display, multiplier for export). Commands are in painter's order: the
// background first, then elements in list order. Invisible elements are skipped.
func CompileDrawCommands(doc *document.Document, scale float64) []DrawCommand {
	if doc == nil {
		return nil
	}
	canvas := doc.Canvas()
	out := geometry.Scale(scale, scale)

	commands := make([]DrawCommand, 0, doc.Len()+1)
	commands = append(commands, backgroundCommand(canvas, out))
	for i := 0; i < doc.Len(); i++ {
		el := doc.At(i)
		if !el.Visible {
			continue
		}
		commands = compileElement(commands, el, out, scale)
	}
	return commands
}

func backgroundCommand(c document.Canvas, out geometry.Matrix2D) DrawCommand {
	cmd := DrawCommand{
		Op:        OpBackground,
		Transform: out.ToSlice(),
		Width:     c.Width,
		Height:    c.Height,
		Path:      rectPath(c.Width, c.Height),
		Opacity:   1,
	}
	switch c.Background.Kind {
	case document.BackgroundLinear:
		g := *c.Background.Gradient
		cmd.Gradient = &g
	default:
		cmd.Fill = c.Background.Color
		if cmd.Fill == "" {
			cmd.Fill = "#ffffff"
		}
	}
	return cmd
}

func compileElement(commands []DrawCommand, el document.Element, out geometry.Matrix2D, scale float64) []DrawCommand {
	world := out.Multiply(el.Transform())
	bounds := geometry.ToExportRect(el.Bounds(), scale)
	base := DrawCommand{
		ObjectID:  el.ID,
		Transform: world.ToSlice(),
		Width:     el.Size.W,
		Height:    el.Size.H,
		Opacity:   el.Opacity,
		Bounds:    &bounds,
	}

	switch c := el.Content.(type) {
	case document.ShapeContent:
		commands = append(commands, shapeCommand(base, c))
	case document.TextContent:
		commands = append(commands, textCommand(base, c))
	case document.ImageContent:
		cmd := base
		cmd.Op = OpImage
		cmd.ImageRef = c.SourceRef
		cmd.ImageAspect = c.AspectRatio
		cmd.ImageFit = c.Fit
		commands = append(commands, cmd)
	case document.ButtonContent:
		shape, label := c.Parts(el)
		commands = append(commands, shapeCommand(base, shape.Content.(document.ShapeContent)))

		// The label shares the button transform so it rotates about the button centre.
		offset := label.Position.Sub(el.Position)
		lbl := base
		lbl.Transform = world.Multiply(geometry.Translate(offset.X, offset.Y)).ToSlice()
		lbl.Height = label.Size.H
		commands = append(commands, textCommand(lbl, label.Content.(document.TextContent)))
	}
	return commands
}

func shapeCommand(base DrawCommand, c document.ShapeContent) DrawCommand {
	cmd := base
	cmd.Op = OpPath
	cmd.Path = shapePath(c.Shape, base.Width, base.Height, c.CornerRadius)
	cmd.Fill = c.Fill
	cmd.Stroke = c.Stroke
	cmd.StrokeWidth = c.StrokeWidth
	if c.Shape == document.ShapeLine {
		cmd.Fill = ""
		if cmd.Stroke == "" {
			cmd.Stroke = c.Fill
		}
		if cmd.StrokeWidth == 0 {
			cmd.StrokeWidth = max(base.Height, 1)
		}
	}
	return cmd
}

func textCommand(base DrawCommand, c document.TextContent) DrawCommand {
	cmd := base
	cmd.Op = OpText
	cmd.Text = &TextRun{
		Content:       c.Content,
		FontFamily:    c.FontFamily,
		FontSize:      c.FontSize,
		FontWeight:    c.FontWeight,
		Color:         c.Color,
		Align:         c.Align,
		LineHeight:    c.LineHeight,
		LetterSpacing: c.LetterSpacing,
	}
	return cmd
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the id of the topmost visible, unlocked element containing the
// design-space point p. Rotation is honoured by testing in the element's local space.
func HitTest(doc *document.Document, p geometry.Point) (string, bool) {
	if doc == nil {
		return "", false
	}
	for i := doc.Len() - 1; i >= 0; i-- {
		el := doc.At(i)
		if !el.Visible || el.Locked {
			continue
		}
		x, y := el.Transform().Invert().TransformPoint(p.X, p.Y)
		if geometry.RectFrom(geometry.Point{}, el.Size).Contains(x, y) {
			return el.ID, true
		}
	}
	return "", false
}

// SelectionBounds returns the union of the bounds of the given elements. Unknown ids are
// ignored; ok is false when none were found.
func SelectionBounds(doc *document.Document, ids []string) (geometry.Rect, bool) {
	var result geometry.Rect
	found := false
	for _, id := range ids {
		el, err := doc.Element(id)
		if err != nil {
			continue
		}
		if !found {
			result = el.Bounds()
			found = true
		} else {
			result = result.Union(el.Bounds())
		}
	}
	return result, found
}
