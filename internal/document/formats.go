package document

import (
	"slices"
	"strings"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

// Format is a named canvas preset for a publishing target.
type Format struct {
	Name        string  `json:"name"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio string  `json:"aspectRatio"`
	Description string  `json:"description"`
}

// Size returns the preset dimensions.
func (f Format) Size() geometry.Size {
	return geometry.Size{W: f.Width, H: f.Height}
}

var Formats = map[string]Format{
	"square":    {Name: "square", Width: 1080, Height: 1080, AspectRatio: "1:1", Description: "Instagram/Facebook feed post"},
	"story":     {Name: "story", Width: 1080, Height: 1920, AspectRatio: "9:16", Description: "Instagram/Facebook story, Reels"},
	"landscape": {Name: "landscape", Width: 1200, Height: 628, AspectRatio: "1.91:1", Description: "Facebook/LinkedIn link ad"},
	"portrait":  {Name: "portrait", Width: 1080, Height: 1350, AspectRatio: "4:5", Description: "Instagram portrait post"},
	"wide":      {Name: "wide", Width: 1920, Height: 1080, AspectRatio: "16:9", Description: "YouTube thumbnail, display banner"},
	"banner":    {Name: "banner", Width: 1200, Height: 300, AspectRatio: "4:1", Description: "Web leaderboard banner"},
}

// LookupFormat returns the preset with the given name (case-insensitive).
func LookupFormat(name string) (Format, bool) {
	f, ok := Formats[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// FormatNames returns the preset names in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for n := range Formats {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
