package editor

import (
	"encoding/json"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/render"
)

// Render compiles the current document at the given scale, including the drag overlay,
// snap guides and the selection outline.
func (s *Session) Render(scale float64) []render.DrawCommand {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.preview()
	commands := render.CompileDrawCommands(doc, scale)
	if ids := s.selection.Selected(); len(ids) > 0 {
		if b, ok := render.SelectionBounds(doc, ids); ok {
			commands = append(commands, render.SelectionCommand(b, scale))
		}
	}
	if s.drag != nil {
		commands = append(commands, render.GuideCommands(s.drag.guides, doc.Canvas().Size(), scale)...)
	}
	return commands
}

// RenderJSON renders at the current zoom and returns the commands as JSON.
func (s *Session) RenderJSON() string {
	result, err := render.DrawCommandsToJSON(s.Render(s.Zoom()))
	if err != nil {
		s.logger.Error("failed to encode draw commands", "error", err)
	}
	return result
}

// SelectionBounds returns the selection bounds in design space.
func (s *Session) SelectionBounds() (geometry.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Bounds()
}

// SelectionBoundsJSON returns the selection bounds as JSON, or an empty rect.
func (s *Session) SelectionBoundsJSON() string {
	b, _ := s.SelectionBounds()
	data, _ := json.Marshal(b)
	return string(data)
}

// DocumentJSON returns the serialized current document.
func (s *Session) DocumentJSON() string {
	data, err := json.Marshal(s.Document())
	if err != nil {
		s.logger.Error("failed to encode document", "error", err)
		return "{}"
	}
	return string(data)
}
