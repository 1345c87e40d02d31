package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/layer"
	"github.com/adgenesis/adgenesis/engine-go/internal/selection"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrMissingField     = errors.New("missing operation field")
)

// Apply runs op against the room's editor session. It reports whether the op may
// have changed the document or selection, in which case clients need a doc.sync.
func (r *Room) Apply(op Operation) (result any, changed bool, err error) {
	s := r.session

	switch op.Type {
	case OpElementAdd:
		el, err := decodeElement(op.Element)
		if err != nil {
			return nil, false, err
		}
		if el.ID == "" {
			el.ID = typeid.NewElementID()
		}
		return el.ID, true, s.AddElement(el)

	case OpElementRemove:
		return nil, true, s.RemoveElement(op.ElementID)

	case OpElementReplace:
		el, err := decodeElement(op.Element)
		if err != nil {
			return nil, false, err
		}
		if el.ID == "" {
			el.ID = op.ElementID
		}
		return nil, true, s.ReplaceElement(op.ElementID, el)

	case OpBackgroundSet:
		bg, err := document.ParseBackground(op.Background)
		if err != nil {
			return nil, false, err
		}
		return nil, true, s.SetBackground(bg)

	case OpLayerFront, OpLayerBack, OpLayerForward, OpLayerBackward, OpLayerMove, OpLayerVisible, OpLayerLocked:
		return nil, true, s.WithLayers(func(c *layer.Controller) error { return applyLayer(c, op) })

	case OpSelectionSet, OpSelectionToggle, OpSelectionClear, OpSelectionMove, OpSelectionScale, OpSelectionDelete:
		return nil, true, s.WithSelection(func(c *selection.Controller) error { return applySelection(c, op) })

	case OpSelectionAt:
		if op.Point == nil {
			return nil, false, fmt.Errorf("%w: point", ErrMissingField)
		}
		id, ok := s.SelectAt(*op.Point, op.Additive)
		return HitResult{ElementID: id, Hit: ok}, true, nil

	case OpDragBegin:
		if op.Point == nil {
			return nil, false, fmt.Errorf("%w: point", ErrMissingField)
		}
		return nil, true, s.BeginDrag(*op.Point)

	case OpDragMove:
		if op.Point == nil {
			return nil, false, fmt.Errorf("%w: point", ErrMissingField)
		}
		res, err := s.DragTo(*op.Point)
		return res, false, err

	case OpDragEnd:
		return nil, true, s.EndDrag()

	case OpDragCancel:
		s.CancelDrag()
		return nil, false, nil

	case OpHistoryUndo:
		s.Undo()
		return nil, true, nil

	case OpHistoryRedo:
		s.Redo()
		return nil, true, nil

	case OpViewZoom:
		return ZoomResult{Zoom: s.SetZoom(op.Zoom)}, true, nil

	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func applyLayer(c *layer.Controller, op Operation) error {
	switch op.Type {
	case OpLayerFront:
		return c.BringToFront(op.ElementID)
	case OpLayerBack:
		return c.SendToBack(op.ElementID)
	case OpLayerForward:
		return c.BringForward(op.ElementID)
	case OpLayerBackward:
		return c.SendBackward(op.ElementID)
	case OpLayerMove:
		if op.Index == nil {
			return fmt.Errorf("%w: index", ErrMissingField)
		}
		return c.MoveTo(op.ElementID, *op.Index)
	case OpLayerVisible:
		if op.Visible == nil {
			return fmt.Errorf("%w: visible", ErrMissingField)
		}
		return c.SetVisible(op.ElementID, *op.Visible)
	case OpLayerLocked:
		if op.Locked == nil {
			return fmt.Errorf("%w: locked", ErrMissingField)
		}
		return c.SetLocked(op.ElementID, *op.Locked)
	}
	return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
}

func applySelection(c *selection.Controller, op Operation) error {
	switch op.Type {
	case OpSelectionSet:
		return c.Select(op.IDs...)
	case OpSelectionToggle:
		return c.Toggle(op.ElementID)
	case OpSelectionClear:
		c.Clear()
		return nil
	case OpSelectionMove:
		return c.MoveBy(op.Dx, op.Dy)
	case OpSelectionScale:
		return c.ScaleBy(op.Factor)
	case OpSelectionDelete:
		return c.Delete()
	}
	return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
}

func decodeElement(data json.RawMessage) (document.Element, error) {
	if len(data) == 0 {
		return document.Element{}, fmt.Errorf("%w: element", ErrMissingField)
	}
	var el document.Element
	if err := json.Unmarshal(data, &el); err != nil {
		return document.Element{}, fmt.Errorf("%w: %v", document.ErrInvalidElement, err)
	}
	return el, nil
}
