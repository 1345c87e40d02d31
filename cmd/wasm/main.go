//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/editor"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/layer"
	"github.com/adgenesis/adgenesis/engine-go/internal/selection"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

var sess *editor.Session

func main() {
	sess = editor.New(document.NewSampleDocument(typeid.NewElementID), editor.DefaultOptions())

	// Create the engine API object
	designEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	designEngine.Set("loadDocument", js.FuncOf(loadDocument))
	designEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	designEngine.Set("applyBlueprint", js.FuncOf(applyBlueprint))
	designEngine.Set("setBackground", js.FuncOf(setBackground))
	designEngine.Set("addElement", js.FuncOf(addElement))
	designEngine.Set("replaceElement", js.FuncOf(replaceElement))
	designEngine.Set("removeElement", js.FuncOf(removeElement))
	designEngine.Set("selectAt", js.FuncOf(selectAt))
	designEngine.Set("setSelection", js.FuncOf(setSelection))
	designEngine.Set("moveSelection", js.FuncOf(moveSelection))
	designEngine.Set("scaleSelection", js.FuncOf(scaleSelection))
	designEngine.Set("deleteSelection", js.FuncOf(deleteSelection))
	designEngine.Set("beginDrag", js.FuncOf(beginDrag))
	designEngine.Set("dragTo", js.FuncOf(dragTo))
	designEngine.Set("endDrag", js.FuncOf(endDrag))
	designEngine.Set("cancelDrag", js.FuncOf(cancelDrag))
	designEngine.Set("bringToFront", js.FuncOf(layerOp(func(c *layer.Controller, id string) error { return c.BringToFront(id) })))
	designEngine.Set("sendToBack", js.FuncOf(layerOp(func(c *layer.Controller, id string) error { return c.SendToBack(id) })))
	designEngine.Set("bringForward", js.FuncOf(layerOp(func(c *layer.Controller, id string) error { return c.BringForward(id) })))
	designEngine.Set("sendBackward", js.FuncOf(layerOp(func(c *layer.Controller, id string) error { return c.SendBackward(id) })))
	designEngine.Set("setVisible", js.FuncOf(setVisible))
	designEngine.Set("setLocked", js.FuncOf(setLocked))
	designEngine.Set("undo", js.FuncOf(undo))
	designEngine.Set("redo", js.FuncOf(redo))
	designEngine.Set("setZoom", js.FuncOf(setZoom))

	// --- Queries (frontend ← engine) ---
	designEngine.Set("render", js.FuncOf(render))
	designEngine.Set("hitTest", js.FuncOf(hitTest))
	designEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	designEngine.Set("getSelection", js.FuncOf(getSelection))
	designEngine.Set("getLayers", js.FuncOf(getLayers))
	designEngine.Set("getDocument", js.FuncOf(getDocument))
	designEngine.Set("getState", js.FuncOf(getState))
	designEngine.Set("getZoom", js.FuncOf(getZoom))

	// Register on global scope
	js.Global().Set("designEngine", designEngine)

	// Signal that WASM is ready
	js.Global().Set("designWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

func result(err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return ok()
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func point(args []js.Value) geometry.Point {
	return geometry.Point{X: args[0].Float(), Y: args[1].Float()}
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	doc, err := document.Decode([]byte(args[0].String()))
	if err != nil {
		return fail(err)
	}
	sess.Load(doc)
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	sess.Load(document.NewSampleDocument(typeid.NewElementID))
	return ok()
}

// applyBlueprint(blueprintJSON, width, height) resolves a blueprint for a canvas size
// and returns the resolution warnings as JSON.
func applyBlueprint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("blueprint, width or height")
	}
	var bp blueprint.Blueprint
	if err := json.Unmarshal([]byte(args[0].String()), &bp); err != nil {
		return fail(err)
	}
	res, err := sess.Retarget(bp, geometry.Size{W: args[1].Float(), H: args[2].Float()})
	if err != nil {
		return fail(err)
	}
	return toJSON(res.Warnings)
}

func setBackground(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("background")
	}
	bg, err := document.ParseBackground(args[0].String())
	if err != nil {
		return fail(err)
	}
	return result(sess.SetBackground(bg))
}

func decodeElement(args []js.Value) (document.Element, error) {
	var el document.Element
	err := json.Unmarshal([]byte(args[0].String()), &el)
	return el, err
}

func addElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("element JSON")
	}
	el, err := decodeElement(args)
	if err != nil {
		return fail(err)
	}
	if el.ID == "" {
		el.ID = typeid.NewElementID()
	}
	if err := sess.AddElement(el); err != nil {
		return fail(err)
	}
	return js.ValueOf(el.ID)
}

func replaceElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id or element JSON")
	}
	el, err := decodeElement(args[1:])
	if err != nil {
		return fail(err)
	}
	return result(sess.ReplaceElement(args[0].String(), el))
}

func removeElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("id")
	}
	return result(sess.RemoveElement(args[0].String()))
}

// selectAt(x, y, additive) hit tests a display point and returns the selected id or "".
func selectAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("point")
	}
	additive := len(args) > 2 && args[2].Bool()
	id, _ := sess.SelectAt(point(args), additive)
	return js.ValueOf(id)
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("ids JSON")
	}
	var ids []string
	if err := json.Unmarshal([]byte(args[0].String()), &ids); err != nil {
		return fail(err)
	}
	return result(sess.WithSelection(func(c *selection.Controller) error { return c.Select(ids...) }))
}

func moveSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("dx or dy")
	}
	dx, dy := args[0].Float(), args[1].Float()
	return result(sess.WithSelection(func(c *selection.Controller) error { return c.MoveBy(dx, dy) }))
}

func scaleSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("factor")
	}
	f := args[0].Float()
	return result(sess.WithSelection(func(c *selection.Controller) error { return c.ScaleBy(f) }))
}

func deleteSelection(this js.Value, args []js.Value) interface{} {
	return result(sess.WithSelection(func(c *selection.Controller) error { return c.Delete() }))
}

func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("point")
	}
	return result(sess.BeginDrag(point(args)))
}

// dragTo(x, y) returns the snap result (position and guides) as JSON.
func dragTo(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("point")
	}
	res, err := sess.DragTo(point(args))
	if err != nil {
		return fail(err)
	}
	return toJSON(res)
}

func endDrag(this js.Value, args []js.Value) interface{} {
	return result(sess.EndDrag())
}

func cancelDrag(this js.Value, args []js.Value) interface{} {
	sess.CancelDrag()
	return ok()
}

func layerOp(fn func(*layer.Controller, string) error) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return missing("id")
		}
		id := args[0].String()
		return result(sess.WithLayers(func(c *layer.Controller) error { return fn(c, id) }))
	}
}

func setVisible(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id or visible")
	}
	id, v := args[0].String(), args[1].Bool()
	return result(sess.WithLayers(func(c *layer.Controller) error { return c.SetVisible(id, v) }))
}

func setLocked(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id or locked")
	}
	id, v := args[0].String(), args[1].Bool()
	return result(sess.WithLayers(func(c *layer.Controller) error { return c.SetLocked(id, v) }))
}

func undo(this js.Value, args []js.Value) interface{} {
	sess.Undo()
	return ok()
}

func redo(this js.Value, args []js.Value) interface{} {
	sess.Redo()
	return ok()
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("zoom")
	}
	return js.ValueOf(sess.SetZoom(args[0].Float()))
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.RenderJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	id, _ := sess.HitTest(point(args))
	return js.ValueOf(id)
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.SelectionBoundsJSON())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return toJSON(sess.Selected())
}

func getLayers(this js.Value, args []js.Value) interface{} {
	return toJSON(sess.Layers())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.DocumentJSON())
}

func getState(this js.Value, args []js.Value) interface{} {
	return toJSON(sess.State())
}

func getZoom(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.Zoom())
}
