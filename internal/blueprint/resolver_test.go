package blueprint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

func counter() func() string {
	n := 0
	return func() string { n++; return fmt.Sprintf("el_%d", n) }
}

func newTestResolver() *Resolver {
	return NewResolver(
		WithIDGenerator(counter()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func samplePalette() Palette {
	return Palette{
		Colors: map[string]string{"primary": "#e94560", "text": "#ffffff", "bg": "#1a1a2e"},
		Fonts:  map[string]string{"display": "Inter", "body": "Roboto"},
	}
}

func TestHeadlineResolvesToDesignPixels(t *testing.T) {
	bp := Blueprint{
		Palette: samplePalette(),
		Placements: []Placement{{
			Role:    RoleHeadline,
			Box:     Box{X: 10, Y: 20, W: 80, H: 15},
			Content: "Summer Sale",
			Style:   StyleRef{Color: "text", Font: "display"},
		}},
	}
	res, err := newTestResolver().Resolve(bp, geometry.Size{W: 1080, H: 1080})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: %+v", res.Warnings)
	}
	el := res.Document.At(0)
	if got := el.Box(); got != (geometry.Rect{X: 108, Y: 216, Width: 864, Height: 162}) {
		t.Fatalf("box = %+v", got)
	}
	text := el.Content.(document.TextContent)
	if text.FontFamily != "Inter" || text.Color != "#ffffff" || text.FontSize != 64 {
		t.Fatalf("text = %+v", text)
	}
}

func fullBlueprint() Blueprint {
	half := 0.5
	return Blueprint{
		Background: "linear-gradient(135deg, #1a1a2e 0%, #16213e 100%)",
		Palette:    samplePalette(),
		Placements: []Placement{
			{Role: RoleDecorativeShape, Box: Box{X: 60, Y: -10, W: 50, H: 50}, Shape: document.ShapeCircle, Style: StyleRef{Fill: "primary"}, Opacity: &half},
			{Role: RoleImageSlot, Box: Box{X: 10, Y: 55, W: 50, H: 30}, SourceRef: "asset_x", AspectRatio: 1.5},
			{Role: RoleHeadline, Box: Box{X: 10, Y: 20, W: 80, H: 15}, Content: "Big", Style: StyleRef{Color: "text", Font: "display", FontSize: 96}},
			{Role: RoleSubheadline, Box: Box{X: 10, Y: 38, W: 70, H: 8}, Content: "Small", Style: StyleRef{Color: "#eaeaea", Font: "body"}},
			{Role: RoleCTA, Box: Box{X: 65, Y: 80, W: 25, H: 9}, Content: "Shop", Style: StyleRef{Color: "text", Fill: "primary", Font: "display", CornerRadius: 8}},
		},
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	size := geometry.Size{W: 1200, H: 628}
	a, err := newTestResolver().Resolve(fullBlueprint(), size)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewResolver(WithIDGenerator(counter())).Resolve(fullBlueprint(), size)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Document.Equal(b.Document) {
		t.Fatalf("same blueprint and size produced different documents")
	}
	if a.Document.Len() != 5 {
		t.Fatalf("len = %d", a.Document.Len())
	}
}

func TestCTABecomesOneButton(t *testing.T) {
	res, err := newTestResolver().Resolve(fullBlueprint(), geometry.Size{W: 1080, H: 1080})
	if err != nil {
		t.Fatal(err)
	}
	top := res.Document.At(res.Document.Len() - 1)
	btn, ok := top.Content.(document.ButtonContent)
	if !ok {
		t.Fatalf("cta resolved to %T", top.Content)
	}
	if btn.Shape.Fill != "#e94560" || btn.Label.Content != "Shop" || btn.Label.Align != document.AlignCenter {
		t.Fatalf("button = %+v", btn)
	}
	if res.Document.Canvas().Background.Kind != document.BackgroundLinear {
		t.Fatalf("background = %+v", res.Document.Canvas().Background)
	}
}

func TestOffCanvasPercentagesAreNotClamped(t *testing.T) {
	res, err := newTestResolver().Resolve(fullBlueprint(), geometry.Size{W: 1000, H: 1000})
	if err != nil {
		t.Fatal(err)
	}
	el := res.Document.At(0)
	if el.Position.Y != -100 || el.Size.W != 500 || el.Opacity != 0.5 {
		t.Fatalf("decorative shape = %+v", el)
	}
}

func TestUnresolvablePlacementsAreSkipped(t *testing.T) {
	bp := Blueprint{
		Background: "not-a-color",
		Palette:    samplePalette(),
		Placements: []Placement{
			{Role: "sticker", Box: Box{W: 10, H: 10}},
			{Role: RoleHeadline, Box: Box{W: 10, H: 10}, Content: "x", Style: StyleRef{Color: "missing", Font: "display"}},
			{Role: RoleBody, Box: Box{W: 10, H: 10}, Content: "x", Style: StyleRef{Color: "text"}},
			{Role: RoleCTA, Box: Box{W: 10, H: 10}, Style: StyleRef{Color: "text", Fill: "primary", Font: "display"}},
			{Role: RoleDecorativeShape, Box: Box{W: 10, H: 10}},
			{Role: RoleDecorativeShape, Box: Box{W: -10, H: 10}, Style: StyleRef{Fill: "primary"}},
			{Role: RoleImageSlot, Box: Box{W: 10, H: 10}},
		},
	}
	res, err := newTestResolver().Resolve(bp, geometry.Size{W: 500, H: 500})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Document.Len() != 1 || res.Document.At(0).Kind() != document.KindImage {
		t.Fatalf("only the image slot should survive, got %d elements", res.Document.Len())
	}
	if len(res.Warnings) != 7 {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
	if res.Warnings[0].Index != -1 || res.Warnings[0].Role != RoleBackground {
		t.Fatalf("first warning should be the background: %+v", res.Warnings[0])
	}
	for _, w := range res.Warnings {
		if !errors.Is(w, ErrUnresolvedPlacement) {
			t.Errorf("warning %v does not wrap ErrUnresolvedPlacement", w)
		}
	}
}

func TestInvalidCanvasIsAnError(t *testing.T) {
	_, err := newTestResolver().Resolve(fullBlueprint(), geometry.Size{W: 0, H: 100})
	if !errors.Is(err, document.ErrInvalidGeometry) {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveFormat(t *testing.T) {
	res, err := newTestResolver().ResolveFormat(fullBlueprint(), "Story")
	if err != nil {
		t.Fatal(err)
	}
	if c := res.Document.Canvas(); c.Width != 1080 || c.Height != 1920 {
		t.Fatalf("canvas = %+v", c)
	}
	if _, err := newTestResolver().ResolveFormat(fullBlueprint(), "billboard"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v", err)
	}
}
