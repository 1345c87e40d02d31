// Package export rasterizes and vectorizes documents with tdewolff/canvas. Every format
// replays the same draw command buffer the browser canvas receives.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/render"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidScale      = errors.New("invalid export scale")
)

const (
	// canvas works in millimetres and points
	ptPerMm = 72.0 / 25.4
	// vector formats keep CSS pixel dimensions (96 DPI)
	mmPerPx = 25.4 / 96.0

	defaultLineHeight  = 1.2
	defaultJPEGQuality = 92
)

var transparent = color.RGBA{0, 0, 0, 0}

// ParseFormat accepts a format name; "jpg" is an alias for jpeg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPNG, FormatJPEG, FormatSVG, FormatPDF:
		return f, nil
	case "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func (f Format) Vector() bool {
	return f == FormatSVG || f == FormatPDF
}

// ImageSource resolves image element source refs.
type ImageSource interface {
	Image(ref string) (image.Image, error)
}

// Renderer draws documents via github.com/tdewolff/canvas.
type Renderer struct {
	fontDir     string
	images      ImageSource
	logger      *slog.Logger
	jpegQuality int

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

type Option func(*Renderer)

// WithFontDir sets the directory searched for <family>.ttf style font files.
func WithFontDir(dir string) Option {
	return func(r *Renderer) { r.fontDir = dir }
}

func WithImages(src ImageSource) Option {
	return func(r *Renderer) { r.images = src }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func WithJPEGQuality(q int) Option {
	return func(r *Renderer) { r.jpegQuality = q }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		logger:       slog.Default(),
		jpegQuality:  defaultJPEGQuality,
		fontFamilies: make(map[string]*fontFamilyEntry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render writes doc in the given format. Raster formats are exactly
// round(W*scale) x round(H*scale) pixels.
func (r *Renderer) Render(w io.Writer, doc *document.Document, format Format, scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidScale, scale)
	}

	switch format {
	case FormatPNG, FormatJPEG:
		img := rasterizer.Draw(r.Canvas(doc, scale), canvas.DPMM(1.0), canvas.DefaultColorSpace)
		if format == FormatPNG {
			return png.Encode(w, img)
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: r.jpegQuality})

	case FormatSVG:
		c := r.Canvas(doc, scale*mmPerPx)
		out := svg.New(w, c.W, c.H, nil)
		c.RenderTo(out)
		return out.Close()

	case FormatPDF:
		c := r.Canvas(doc, scale*mmPerPx)
		out := pdf.New(w, c.W, c.H, nil)
		c.RenderTo(out)
		return out.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Canvas draws doc at scale onto a new canvas of W*scale x H*scale units.
func (r *Renderer) Canvas(doc *document.Document, scale float64) *canvas.Canvas {
	size := geometry.ToExportSize(doc.Canvas().Size(), scale)
	c := canvas.New(size.W, size.H)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	for _, cmd := range render.CompileDrawCommands(doc, scale) {
		r.draw(ctx, cmd)
	}
	return c
}

func (r *Renderer) draw(ctx *canvas.Context, cmd render.DrawCommand) {
	ctx.Push()
	defer ctx.Pop()

	ctx.ResetStyle()
	ctx.SetView(toMatrix(cmd.Transform))

	switch cmd.Op {
	case render.OpBackground, render.OpPath:
		r.drawPath(ctx, cmd)
	case render.OpText:
		r.drawText(ctx, cmd)
	case render.OpImage:
		r.drawImage(ctx, cmd)
	}
}

func (r *Renderer) drawPath(ctx *canvas.Context, cmd render.DrawCommand) {
	p := toPath(cmd.Path)
	if p.Empty() {
		return
	}

	switch {
	case cmd.Gradient != nil:
		ctx.SetFillGradient(linearGradient(*cmd.Gradient, cmd.Width, cmd.Height, cmd.Opacity))
	case cmd.Fill != "":
		ctx.SetFillColor(withOpacity(canvas.Hex(cmd.Fill), cmd.Opacity))
	default:
		ctx.SetFillColor(transparent)
	}

	if cmd.Stroke != "" && cmd.StrokeWidth > 0 {
		ctx.SetStrokeColor(withOpacity(canvas.Hex(cmd.Stroke), cmd.Opacity))
		ctx.SetStrokeWidth(cmd.StrokeWidth)
	} else {
		ctx.SetStrokeColor(transparent)
	}
	ctx.DrawPath(0, 0, p)
}

func (r *Renderer) drawText(ctx *canvas.Context, cmd render.DrawCommand) {
	run := cmd.Text
	if run == nil || run.Content == "" || run.FontSize <= 0 {
		return
	}
	col := "#000000"
	if run.Color != "" {
		col = run.Color
	}
	face, err := r.fontFace(run.FontFamily, run.FontWeight, run.FontSize, withOpacity(canvas.Hex(col), cmd.Opacity))
	if err != nil {
		r.logger.Warn("skipping text, no usable font", "element", cmd.ObjectID, "font", run.FontFamily, "error", err)
		return
	}

	var align canvas.TextAlign
	var anchorX float64
	switch run.Align {
	case document.AlignCenter:
		align, anchorX = canvas.Center, cmd.Width/2
	case document.AlignRight:
		align, anchorX = canvas.Right, cmd.Width
	default:
		align, anchorX = canvas.Left, 0
	}

	lineHeight := run.FontSize * defaultLineHeight
	if run.LineHeight > 0 {
		lineHeight = run.FontSize * run.LineHeight
	}
	lines := strings.Split(run.Content, "\n")

	// the block is centred vertically in the box; baselines sit one ascent below each line top
	ascent := face.Metrics().Ascent
	cursorY := (cmd.Height - lineHeight*float64(len(lines))) / 2
	for _, line := range lines {
		baseline := cursorY + (lineHeight-run.FontSize)/2 + ascent
		ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, line, align))
		cursorY += lineHeight
	}
}

func (r *Renderer) drawImage(ctx *canvas.Context, cmd render.DrawCommand) {
	if cmd.ImageRef == "" || r.images == nil {
		return
	}
	img, err := r.images.Image(cmd.ImageRef)
	if err != nil {
		r.logger.Warn("skipping image", "element", cmd.ObjectID, "ref", cmd.ImageRef, "error", err)
		return
	}

	fit := canvas.ImageCover
	switch cmd.ImageFit {
	case document.FitContain:
		fit = canvas.ImageContain
	case document.FitFill:
		fit = canvas.ImageFill
	}
	if _, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); !ok && fit == canvas.ImageCover {
		fit = canvas.ImageFill
	}
	ctx.FitImage(img, canvas.Rect{X0: 0, Y0: 0, X1: cmd.Width, Y1: cmd.Height}, fit)
}

func (r *Renderer) fontFace(name string, weight int, size float64, col color.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(name, weight)
	if err != nil {
		return nil, err
	}
	return family.Face(size*ptPerMm, col, style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string, weight int) (*canvas.FontFamily, canvas.FontStyle, error) {
	style := fontStyle(weight)
	key := fmt.Sprintf("%s|%d", name, style)

	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	family := canvas.NewFontFamily(name)
	if err := r.loadFontIntoFamily(family, name, style); err != nil {
		r.logger.Debug("font not found, using fallback", "font", name, "error", err)
		fallback, err := r.fallback()
		if err != nil {
			return nil, canvas.FontRegular, err
		}
		fbStyle := canvas.FontRegular
		if style >= canvas.FontSemiBold {
			fbStyle = canvas.FontBold
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, name string, style canvas.FontStyle) error {
	if name == "" {
		return errors.New("empty font family")
	}
	if r.fontDir != "" {
		base := strings.ReplaceAll(name, " ", "")
		suffixes := []string{"-Regular", ""}
		if style >= canvas.FontSemiBold {
			suffixes = []string{"-Bold", "-SemiBold", ""}
		}
		for _, suffix := range suffixes {
			for _, ext := range []string{".ttf", ".otf", ".woff2", ".woff"} {
				data, err := os.ReadFile(filepath.Join(r.fontDir, base+suffix+ext))
				if err != nil {
					continue
				}
				return family.LoadFont(data, 0, style)
			}
		}
	}
	return family.LoadSystemFont(name, style)
}

func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	family := canvas.NewFontFamily("go-fallback")
	if err := family.LoadFont(goregular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	if err := family.LoadFont(gobold.TTF, 0, canvas.FontBold); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func fontStyle(weight int) canvas.FontStyle {
	switch {
	case weight == 0:
		return canvas.FontRegular
	case weight >= 900:
		return canvas.FontBlack
	case weight >= 800:
		return canvas.FontExtraBold
	case weight >= 700:
		return canvas.FontBold
	case weight >= 600:
		return canvas.FontSemiBold
	case weight >= 500:
		return canvas.FontMedium
	case weight <= 300:
		return canvas.FontLight
	}
	return canvas.FontRegular
}

// toMatrix converts an [a b c d e f] affine transform to canvas' row-major form.
func toMatrix(t []float64) canvas.Matrix {
	if len(t) != 6 {
		return canvas.Identity
	}
	return canvas.Matrix{
		{t[0], t[2], t[4]},
		{t[1], t[3], t[5]},
	}
}

func toPath(cmds []render.PathCommand) *canvas.Path {
	p := &canvas.Path{}
	for _, c := range cmds {
		if len(c) == 0 {
			continue
		}
		op, _ := c[0].(string)
		switch {
		case op == "M" && len(c) == 3:
			p.MoveTo(num(c[1]), num(c[2]))
		case op == "L" && len(c) == 3:
			p.LineTo(num(c[1]), num(c[2]))
		case op == "C" && len(c) == 7:
			p.CubeTo(num(c[1]), num(c[2]), num(c[3]), num(c[4]), num(c[5]), num(c[6]))
		case op == "Z":
			p.Close()
		}
	}
	return p
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// linearGradient maps a CSS angle gradient onto the w x h box: the gradient line passes
// through the centre and is long enough for the corners to hit the first and last stop.
func linearGradient(g document.LinearGradient, w, h, opacity float64) *canvas.LinearGradient {
	rad := g.AngleDegrees * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2

	grad := canvas.NewLinearGradient(
		canvas.Point{X: cx - dx*half, Y: cy - dy*half},
		canvas.Point{X: cx + dx*half, Y: cy + dy*half},
	)
	for _, stop := range g.Stops {
		grad.Add(stop.Offset, withOpacity(canvas.Hex(stop.Color), opacity))
	}
	return grad
}

// withOpacity scales a premultiplied color by opacity.
func withOpacity(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity <= 0 {
		return transparent
	}
	return color.RGBA{
		R: uint8(float64(c.R) * opacity),
		G: uint8(float64(c.G) * opacity),
		B: uint8(float64(c.B) * opacity),
		A: uint8(float64(c.A) * opacity),
	}
}
