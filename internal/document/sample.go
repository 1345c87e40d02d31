package document

import (
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

// NewSampleDocument builds a square promotional poster, used for the editor demo and as
// a fixture. newID supplies element ids.
func NewSampleDocument(newID func() string) *Document {
	canvas, err := NewCanvas(1080, 1080, Linear(135,
		ColorStop{Offset: 0, Color: "#1a1a2e"},
		ColorStop{Offset: 1, Color: "#16213e"},
	))
	if err != nil {
		panic(err)
	}

	doc, err := New(canvas,
		NewElement(newID(), geometry.Point{X: 648, Y: -108}, geometry.Size{W: 540, H: 540}, ShapeContent{
			Shape: ShapeCircle,
			Fill:  "#e9456033",
		}),
		NewElement(newID(), geometry.Point{X: 108, Y: 216}, geometry.Size{W: 864, H: 162}, TextContent{
			Content:    "Summer Sale",
			FontFamily: "Inter",
			FontSize:   96,
			FontWeight: 800,
			Color:      "#ffffff",
			Align:      AlignLeft,
			LineHeight: 1.1,
		}),
		NewElement(newID(), geometry.Point{X: 108, Y: 410}, geometry.Size{W: 756, H: 108}, TextContent{
			Content:    "Up to 50% off everything in store this weekend",
			FontFamily: "Inter",
			FontSize:   40,
			FontWeight: 400,
			Color:      "#eaeaea",
			Align:      AlignLeft,
			LineHeight: 1.3,
		}),
		NewElement(newID(), geometry.Point{X: 108, Y: 594}, geometry.Size{W: 540, H: 324}, ImageContent{
			SourceRef:   "asset_sample_product",
			AspectRatio: 5.0 / 3,
			Fit:         FitCover,
		}),
		NewElement(newID(), geometry.Point{X: 702, Y: 864}, geometry.Size{W: 270, H: 97}, ButtonContent{
			Shape: ShapeContent{Shape: ShapeRect, Fill: "#e94560", CornerRadius: 12},
			Label: TextContent{
				Content:    "Shop Now",
				FontFamily: "Inter",
				FontSize:   36,
				FontWeight: 700,
				Color:      "#ffffff",
				Align:      AlignCenter,
			},
		}),
	)
	if err != nil {
		panic(err)
	}
	return doc
}
