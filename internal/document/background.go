package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Background expressions follow a small subset of CSS:
//
//	#1a1a2e
//	linear-gradient(135deg, #ff6b6b 0%, #4ecdc4 100%)
//	linear-gradient(#000, #fff)
var backgroundLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{4}|[0-9A-Fa-f]{3})\b`},
	{Name: "Angle", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)deg`},
	{Name: "Percent", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)%`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9_-]*`},
	{Name: "Punct", Pattern: `[(),]`},
})

type backgroundExpr struct {
	Gradient *gradientExpr `parser:"  @@"`
	Color    *string       `parser:"| @Color"`
}

type gradientExpr struct {
	Angle *string     `parser:"'linear-gradient' '(' ( @Angle ',' )?"`
	Stops []*stopExpr `parser:"@@ ( ',' @@ )* ')'"`
}

type stopExpr struct {
	Color  string  `parser:"@Color"`
	Offset *string `parser:"@Percent?"`
}

var backgroundParser = participle.MustBuild[backgroundExpr](
	participle.Lexer(backgroundLexer),
	participle.Elide("Whitespace"),
)

// DefaultGradientAngle is the CSS default direction (top to bottom).
const DefaultGradientAngle = 180

// ParseBackground parses a hex color or a linear-gradient expression. Stops without an
// explicit offset are spread evenly between their neighbours.
func ParseBackground(expr string) (Background, error) {
	ast, err := backgroundParser.ParseString("", strings.TrimSpace(expr))
	if err != nil {
		return Background{}, fmt.Errorf("%w: %v", ErrInvalidBackground, err)
	}
	if ast.Color != nil {
		return Solid(*ast.Color), nil
	}

	g := ast.Gradient
	angle := float64(DefaultGradientAngle)
	if g.Angle != nil {
		angle, err = strconv.ParseFloat(strings.TrimSuffix(*g.Angle, "deg"), 64)
		if err != nil {
			return Background{}, fmt.Errorf("%w: angle %q", ErrInvalidBackground, *g.Angle)
		}
	}
	if len(g.Stops) < 2 {
		return Background{}, fmt.Errorf("%w: gradient needs at least two stops", ErrInvalidBackground)
	}

	offsets := make([]float64, len(g.Stops))
	known := make([]bool, len(g.Stops))
	for i, s := range g.Stops {
		if s.Offset == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(*s.Offset, "%"), 64)
		if err != nil {
			return Background{}, fmt.Errorf("%w: offset %q", ErrInvalidBackground, *s.Offset)
		}
		offsets[i], known[i] = v/100, true
	}
	fillOffsets(offsets, known)

	stops := make([]ColorStop, len(g.Stops))
	for i, s := range g.Stops {
		stops[i] = ColorStop{Offset: offsets[i], Color: s.Color}
	}
	bg := Linear(angle, stops...)
	if err := bg.validate(); err != nil {
		return Background{}, err
	}
	return bg, nil
}

// fillOffsets assigns missing offsets: the ends default to 0 and 1, interior gaps are
// interpolated linearly between the nearest known stops.
func fillOffsets(offsets []float64, known []bool) {
	last := len(offsets) - 1
	if !known[0] {
		offsets[0], known[0] = 0, true
	}
	if !known[last] {
		offsets[last], known[last] = 1, true
	}
	prev := 0
	for i := 1; i <= last; i++ {
		if !known[i] {
			continue
		}
		if gap := i - prev; gap > 1 {
			step := (offsets[i] - offsets[prev]) / float64(gap)
			for j := prev + 1; j < i; j++ {
				offsets[j] = offsets[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}

// String renders the background back into expression form.
func (b Background) String() string {
	if b.Kind != BackgroundLinear || b.Gradient == nil {
		return b.Color
	}
	var sb strings.Builder
	sb.WriteString("linear-gradient(")
	sb.WriteString(strconv.FormatFloat(b.Gradient.AngleDegrees, 'f', -1, 64))
	sb.WriteString("deg")
	for _, s := range b.Gradient.Stops {
		sb.WriteString(", ")
		sb.WriteString(s.Color)
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(s.Offset*100, 'f', -1, 64))
		sb.WriteByte('%')
	}
	sb.WriteByte(')')
	return sb.String()
}
