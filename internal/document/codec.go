package document

import (
	"encoding/json"
	"fmt"

	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

// elementJSON is the persisted shape of an element: shared geometry plus a type
// discriminator and a kind-specific data payload.
type elementJSON struct {
	ID       string          `json:"id"`
	Type     Kind            `json:"type"`
	Position geometry.Point  `json:"position"`
	Size     geometry.Size   `json:"size"`
	Rotation float64         `json:"rotation"`
	Opacity  *float64        `json:"opacity,omitempty"`
	Visible  *bool           `json:"visible,omitempty"`
	Locked   bool            `json:"locked"`
	Data     json.RawMessage `json:"data"`
}

type documentJSON struct {
	Canvas   Canvas    `json:"canvas"`
	Elements []Element `json:"elements"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	if e.Content == nil {
		return nil, fmt.Errorf("%w: %s has no content", ErrInvalidElement, e.ID)
	}
	data, err := json.Marshal(e.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(elementJSON{
		ID:       e.ID,
		Type:     e.Content.Kind(),
		Position: e.Position,
		Size:     e.Size,
		Rotation: e.Rotation,
		Opacity:  &e.Opacity,
		Visible:  &e.Visible,
		Locked:   e.Locked,
		Data:     data,
	})
}

// UnmarshalJSON decodes an element. Missing opacity and visibility default to 1 and true.
// Geometry is validated when the element enters a Document.
func (e *Element) UnmarshalJSON(b []byte) error {
	var raw elementJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	content, err := decodeContent(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("element %s: %w", raw.ID, err)
	}

	*e = Element{
		ID:       raw.ID,
		Position: raw.Position,
		Size:     raw.Size,
		Rotation: raw.Rotation,
		Opacity:  1,
		Visible:  true,
		Locked:   raw.Locked,
		Content:  content,
	}
	if raw.Opacity != nil {
		e.Opacity = *raw.Opacity
	}
	if raw.Visible != nil {
		e.Visible = *raw.Visible
	}
	return nil
}

func decodeContent(kind Kind, data json.RawMessage) (Content, error) {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	switch kind {
	case KindText:
		var c TextContent
		err := json.Unmarshal(data, &c)
		return c, err
	case KindShape:
		var c ShapeContent
		err := json.Unmarshal(data, &c)
		return c, err
	case KindImage:
		var c ImageContent
		err := json.Unmarshal(data, &c)
		return c, err
	case KindButton:
		var c ButtonContent
		err := json.Unmarshal(data, &c)
		return c, err
	default:
		return nil, fmt.Errorf("%w: unknown element type %q", ErrInvalidElement, kind)
	}
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{Canvas: d.canvas, Elements: d.elements})
}

// UnmarshalJSON decodes a document and re-validates every invariant.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	doc, err := New(raw.Canvas, raw.Elements...)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// Decode parses a serialized document.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}

// Encode serializes a document. Only canvas and elements are persisted.
func Encode(d *Document) ([]byte, error) {
	return json.Marshal(d)
}
