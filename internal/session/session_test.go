package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/design"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/editor"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/store"
)

type memDocs struct {
	mu      sync.Mutex
	doc     *document.Document
	version int
	saves   int
}

func (m *memDocs) LoadDocument(ctx context.Context, designID, userID string) (*document.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if designID != "dsn_1" {
		return nil, 0, design.ErrNotFound
	}
	return m.doc, m.version, nil
}

func (m *memDocs) SaveDocument(ctx context.Context, designID, userID string, doc *document.Document, version int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.version {
		return 0, design.ErrConflict
	}
	m.doc = doc
	m.version++
	m.saves++
	return m.version, nil
}

func (m *memDocs) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func square(id string, x, y, size float64) document.Element {
	return document.NewElement(id, geometry.Point{X: x, Y: y}, geometry.Size{W: size, H: size},
		document.ShapeContent{Shape: document.ShapeRect, Fill: "#333"})
}

func newHub(t *testing.T) (*Hub, *memDocs) {
	t.Helper()
	c, err := document.NewCanvas(1080, 1080, document.Solid("#fff"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := document.New(c, square("a", 100, 100, 100), square("b", 400, 400, 100))
	if err != nil {
		t.Fatal(err)
	}
	docs := &memDocs{doc: doc, version: 1}
	opts := editor.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(docs, opts, WithAutosave(0)), docs
}

func TestOpenIsExclusive(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()

	room, err := h.Open(ctx, "dsn_1", "u")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Open(ctx, "dsn_1", "u"); !errors.Is(err, ErrDesignBusy) {
		t.Fatalf("second open: %v", err)
	}
	if err := h.Close(ctx, room); err != nil {
		t.Fatal(err)
	}
	if h.IsOpen("dsn_1") {
		t.Fatal("room still open after close")
	}
	if _, err := h.Open(ctx, "dsn_missing", "u"); !errors.Is(err, design.ErrNotFound) {
		t.Fatalf("missing design: %v", err)
	}
	if h.IsOpen("dsn_missing") {
		t.Fatal("failed open left a reservation")
	}
}

func TestSubmitOperations(t *testing.T) {
	h, _ := newHub(t)
	room, err := h.Open(context.Background(), "dsn_1", "u")
	if err != nil {
		t.Fatal(err)
	}
	doc := func() *document.Document { return room.Session().Document() }

	submit := func(op Operation) (int64, any, bool) {
		t.Helper()
		seq, result, changed, err := room.Submit(op)
		if err != nil {
			t.Fatalf("%s: %v", op.Type, err)
		}
		return seq, result, changed
	}

	submit(Operation{Type: OpSelectionSet, IDs: []string{"a"}})
	submit(Operation{Type: OpSelectionMove, Dx: 10})
	if el, _ := doc().Element("a"); el.Position != (geometry.Point{X: 110, Y: 100}) {
		t.Fatalf("moved position = %+v", el.Position)
	}

	submit(Operation{Type: OpLayerFront, ElementID: "a"})
	if doc().IndexOf("a") != doc().Len()-1 {
		t.Fatalf("a not on top: index %d", doc().IndexOf("a"))
	}
	submit(Operation{Type: OpHistoryUndo})
	if doc().IndexOf("a") != 0 {
		t.Fatalf("undo did not restore order: index %d", doc().IndexOf("a"))
	}

	if _, _, _, err := room.Submit(Operation{Type: OpLayerLocked, ElementID: "a"}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing locked: %v", err)
	}
	if _, _, _, err := room.Submit(Operation{Type: "element.explode"}); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("unknown op: %v", err)
	}
	if _, _, _, err := room.Submit(Operation{Type: OpBackgroundSet, Background: "linear("}); err == nil {
		t.Fatal("expected background parse error")
	}
	submit(Operation{Type: OpBackgroundSet, Background: "#000000"})

	_, result, _ := submit(Operation{
		Type:    OpElementAdd,
		Element: json.RawMessage(`{"type":"shape","position":{"x":10,"y":10},"size":{"w":50,"h":50},"data":{"shape":"rect","fill":"#f00"}}`),
	})
	id, _ := result.(string)
	if !strings.HasPrefix(id, "el_") || !doc().Has(id) {
		t.Fatalf("added id = %v", result)
	}

	_, result, _ = submit(Operation{Type: OpViewZoom, Zoom: 2})
	if result != (ZoomResult{Zoom: 2}) {
		t.Fatalf("zoom result = %+v", result)
	}
	seq, result, _ := submit(Operation{Type: OpSelectionAt, Point: &geometry.Point{X: 240, Y: 240}})
	if result != (HitResult{ElementID: "a", Hit: true}) {
		t.Fatalf("hit = %+v", result)
	}
	if seq != 8 {
		t.Fatalf("seq = %d, want 8", seq)
	}
}

func TestDragThroughOperations(t *testing.T) {
	h, _ := newHub(t)
	room, err := h.Open(context.Background(), "dsn_1", "u")
	if err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := room.Submit(Operation{Type: OpDragMove, Point: &geometry.Point{}}); !errors.Is(err, editor.ErrNotDragging) {
		t.Fatalf("move before begin: %v", err)
	}
	if _, _, _, err := room.Submit(Operation{Type: OpDragBegin, Point: &geometry.Point{X: 150, Y: 150}}); err != nil {
		t.Fatal(err)
	}
	_, _, changed, err := room.Submit(Operation{Type: OpDragMove, Point: &geometry.Point{X: 170, Y: 150}})
	if err != nil || changed {
		t.Fatalf("drag move changed=%v err=%v", changed, err)
	}
	if el, _ := room.Session().Document().Element("a"); el.Position.X != 100 {
		t.Fatalf("drag move touched the document: %+v", el.Position)
	}
	if _, _, _, err := room.Submit(Operation{Type: OpDragEnd}); err != nil {
		t.Fatal(err)
	}
	if el, _ := room.Session().Document().Element("a"); el.Position.X == 100 {
		t.Fatalf("drag end did not move: %+v", el.Position)
	}
}

func TestSaveOnlyWhenDirty(t *testing.T) {
	h, docs := newHub(t)
	ctx := context.Background()
	room, err := h.Open(ctx, "dsn_1", "u")
	if err != nil {
		t.Fatal(err)
	}

	if v, err := room.Save(ctx); err != nil || v != 1 || docs.saveCount() != 0 {
		t.Fatalf("clean save: v=%d err=%v saves=%d", v, err, docs.saveCount())
	}
	if _, _, _, err := room.Submit(Operation{Type: OpElementRemove, ElementID: "b"}); err != nil {
		t.Fatal(err)
	}
	if !room.Sync().Dirty {
		t.Fatal("expected dirty after edit")
	}
	if v, err := room.Save(ctx); err != nil || v != 2 {
		t.Fatalf("save: v=%d err=%v", v, err)
	}
	if room.Sync().Dirty || docs.saveCount() != 1 {
		t.Fatalf("dirty after save, saves=%d", docs.saveCount())
	}
}

func TestStopSavesAndRefuses(t *testing.T) {
	h, docs := newHub(t)
	ctx := context.Background()
	room, err := h.Open(ctx, "dsn_1", "u")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := room.Submit(Operation{Type: OpElementRemove, ElementID: "a"}); err != nil {
		t.Fatal(err)
	}

	h.Stop()
	if docs.saveCount() != 1 {
		t.Fatalf("saves = %d", docs.saveCount())
	}
	if _, err := h.Open(ctx, "dsn_2", "u"); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("open after stop: %v", err)
	}
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func writeMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	data, _ := json.Marshal(Message{Type: typ, Payload: raw})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebsocketSession(t *testing.T) {
	h, docs := newHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Handle(w, r, "dsn_1", "u", nil)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.CloseNow()

	if msg := readMessage(t, ctx, conn); msg.Type != TypeWelcome {
		t.Fatalf("first message = %s", msg.Type)
	}
	first := readMessage(t, ctx, conn)
	var state struct {
		Version  int             `json:"version"`
		Document json.RawMessage `json:"document"`
	}
	if err := json.Unmarshal(first.Payload, &state); err != nil || first.Type != TypeDocSync || state.Version != 1 {
		t.Fatalf("initial sync = %s %s", first.Type, first.Payload)
	}

	if _, resp, err := websocket.Dial(ctx, url, nil); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second connection should be refused: %v", err)
	}

	writeMessage(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{ID: "op1", Type: OpSelectionSet, IDs: []string{"b"}}})
	ack := readMessage(t, ctx, conn)
	if ack.Type != TypeOpAck || ack.Seq != 1 {
		t.Fatalf("ack = %+v", ack)
	}
	if msg := readMessage(t, ctx, conn); msg.Type != TypeDocSync {
		t.Fatalf("expected sync after ack, got %s", msg.Type)
	}

	writeMessage(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{ID: "op2", Type: OpSelectionScale, Factor: -1}})
	nack := readMessage(t, ctx, conn)
	var np OperationNackPayload
	if err := json.Unmarshal(nack.Payload, &np); err != nil || nack.Type != TypeOpNack || np.OperationID != "op2" {
		t.Fatalf("nack = %+v", nack)
	}

	writeMessage(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{ID: "op3", Type: OpSelectionMove, Dx: 5, Dy: 5}})
	readMessage(t, ctx, conn)
	readMessage(t, ctx, conn)

	writeMessage(t, ctx, conn, TypeDocSave, nil)
	saved := readMessage(t, ctx, conn)
	var sp SavedPayload
	if err := json.Unmarshal(saved.Payload, &sp); err != nil || saved.Type != TypeDocSaved || sp.Version != 2 {
		t.Fatalf("saved = %s %s", saved.Type, saved.Payload)
	}

	writeMessage(t, ctx, conn, "presence.update", nil)
	if msg := readMessage(t, ctx, conn); msg.Type != TypeError {
		t.Fatalf("unknown type reply = %s", msg.Type)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline := time.Now().Add(5 * time.Second)
	for h.IsOpen("dsn_1") {
		if time.Now().After(deadline) {
			t.Fatal("room not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if docs.saveCount() != 1 {
		t.Fatalf("saves = %d", docs.saveCount())
	}
}

func TestHTTPWritesWaitForOpenSession(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "designs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := design.NewService(st, nil, logger)
	opts := editor.DefaultOptions()
	opts.Logger = logger
	h := NewHub(svc, opts, WithAutosave(0))
	svc.UseSessions(h)

	ctx := context.Background()
	d, err := svc.Generate(ctx, "u", design.GenerateRequest{
		Name:   "Sale",
		Format: "square",
		Blueprint: blueprint.Blueprint{
			Background: "#ffffff",
			Placements: []blueprint.Placement{{
				Role:  blueprint.RoleDecorativeShape,
				Box:   blueprint.Box{X: 10, Y: 10, W: 20, H: 20},
				Style: blueprint.StyleRef{Fill: "#ff0000"},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	room, err := h.Open(ctx, d.ID, "u")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Retarget(ctx, d.ID, "u", "landscape"); !errors.Is(err, design.ErrDesignOpen) {
		t.Fatalf("retarget while open: %v", err)
	}
	data, _ := document.Encode(d.Document)
	if _, err := svc.Update(ctx, d.ID, "u", data, 1); !errors.Is(err, design.ErrDesignOpen) {
		t.Fatalf("update while open: %v", err)
	}
	if err := svc.Delete(ctx, d.ID, "u"); !errors.Is(err, design.ErrDesignOpen) {
		t.Fatalf("delete while open: %v", err)
	}

	if _, _, _, err := room.Submit(Operation{
		Type:    OpElementAdd,
		Element: json.RawMessage(`{"id":"el_new","type":"shape","position":{"x":10,"y":10},"size":{"w":50,"h":50},"data":{"shape":"rect","fill":"#f00"}}`),
	}); err != nil {
		t.Fatal(err)
	}
	if v, err := room.Save(ctx); err != nil || v != 2 {
		t.Fatalf("save = %d, %v", v, err)
	}
	if err := h.Close(ctx, room); err != nil {
		t.Fatal(err)
	}

	doc, version, err := svc.LoadDocument(ctx, d.ID, "u")
	if err != nil || version != 2 || doc.IndexOf("el_new") < 0 {
		t.Fatalf("stored = version %d, err %v", version, err)
	}
	if _, err := svc.Retarget(ctx, d.ID, "u", "landscape"); err != nil {
		t.Fatalf("retarget after close: %v", err)
	}
}
