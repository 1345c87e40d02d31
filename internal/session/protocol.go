package session

import (
	"encoding/json"

	"github.com/adgenesis/adgenesis/engine-go/internal/editor"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
)

type Message struct {
	Type     string          `json:"type"`
	DesignID string          `json:"designId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	TypeError = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync  = "doc.sync"
	TypeDocSave  = "doc.save"
	TypeDocSaved = "doc.saved"

	// Operation message types
	TypeOpSubmit = "op.submit"
	TypeOpAck    = "op.ack"
	TypeOpNack   = "op.nack"
)

// Operation types.
const (
	OpElementAdd     = "element.add"
	OpElementRemove  = "element.remove"
	OpElementReplace = "element.replace"
	OpBackgroundSet  = "background.set"

	OpLayerFront    = "layer.front"
	OpLayerBack     = "layer.back"
	OpLayerForward  = "layer.forward"
	OpLayerBackward = "layer.backward"
	OpLayerMove     = "layer.move"
	OpLayerVisible  = "layer.visible"
	OpLayerLocked   = "layer.locked"

	OpSelectionSet    = "selection.set"
	OpSelectionToggle = "selection.toggle"
	OpSelectionClear  = "selection.clear"
	OpSelectionAt     = "selection.at"
	OpSelectionMove   = "selection.move"
	OpSelectionScale  = "selection.scale"
	OpSelectionDelete = "selection.delete"

	OpDragBegin  = "drag.begin"
	OpDragMove   = "drag.move"
	OpDragEnd    = "drag.end"
	OpDragCancel = "drag.cancel"

	OpHistoryUndo = "history.undo"
	OpHistoryRedo = "history.redo"

	OpViewZoom = "view.zoom"
)

// Operation is one editing command. Which fields are read depends on Type; points are
// in display space at the session zoom.
type Operation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	ElementID string          `json:"elementId,omitempty"`
	Element   json.RawMessage `json:"element,omitempty"`
	IDs       []string        `json:"ids,omitempty"`
	Index     *int            `json:"index,omitempty"`
	Visible   *bool           `json:"visible,omitempty"`
	Locked    *bool           `json:"locked,omitempty"`
	Point     *geometry.Point `json:"point,omitempty"`
	Additive  bool            `json:"additive,omitempty"`
	Dx        float64         `json:"dx,omitempty"`
	Dy        float64         `json:"dy,omitempty"`
	Factor    float64         `json:"factor,omitempty"`
	Zoom      float64         `json:"zoom,omitempty"`

	// Background is a background expression such as "#fff" or
	// "linear(90deg, #000 0%, #fff 100%)".
	Background string `json:"background,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID string `json:"operationId"`
	ServerSeq   int64  `json:"serverSeq"`
	Result      any    `json:"result,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	DesignID  string `json:"designId"`
}

// SyncPayload carries the full editor state after a committed change.
type SyncPayload struct {
	editor.State
	Version int  `json:"version"`
	Dirty   bool `json:"dirty"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// HitResult is the result of a selection.at operation.
type HitResult struct {
	ElementID string `json:"elementId,omitempty"`
	Hit       bool   `json:"hit"`
}

// ZoomResult is the result of a view.zoom operation.
type ZoomResult struct {
	Zoom float64 `json:"zoom"`
}
