package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/adgenesis/adgenesis/engine-go/internal/design"
	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/editor"
	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

var (
	ErrDesignBusy = errors.New("design is already open in another session")
	ErrHubStopped = errors.New("session hub stopped")
)

const DefaultAutosave = 30 * time.Second

// Documents loads and stores the documents edited through the hub.
type Documents interface {
	LoadDocument(ctx context.Context, designID, userID string) (*document.Document, int, error)
	SaveDocument(ctx context.Context, designID, userID string, doc *document.Document, version int) (int, error)
}

// Room is the live editing session of one design. A design has at most one room and a
// room has exactly one client.
type Room struct {
	designID  string
	userID    string
	sessionID string
	session   *editor.Session
	docs      Documents
	logger    *slog.Logger

	mu      sync.Mutex
	version int
	saved   *document.Document
	seq     int64
}

func (r *Room) DesignID() string { return r.designID }

func (r *Room) Session() *editor.Session { return r.session }

// Submit applies op and returns the room sequence number assigned to it.
func (r *Room) Submit(op Operation) (int64, any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, changed, err := r.Apply(op)
	if err != nil {
		return 0, nil, false, err
	}
	r.seq++
	return r.seq, result, changed, nil
}

// Save stores the current document if it differs from the last saved snapshot and
// returns the stored version.
func (r *Room) Save(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.session.Document()
	if doc == r.saved {
		return r.version, nil
	}
	version, err := r.docs.SaveDocument(ctx, r.designID, r.userID, doc, r.version)
	if err != nil {
		return r.version, fmt.Errorf("save design %s: %w", r.designID, err)
	}
	r.version = version
	r.saved = doc
	r.logger.Info("design saved", "design", r.designID, "version", version)
	return version, nil
}

// Sync returns the full state sent to the client.
func (r *Room) Sync() SyncPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.session.State()
	return SyncPayload{State: st, Version: r.version, Dirty: st.Document != r.saved}
}

type Hub struct {
	docs     Documents
	opts     editor.Options
	logger   *slog.Logger
	autosave time.Duration

	mu      sync.Mutex
	rooms   map[string]*Room // designID -> room; nil while loading
	stopped bool

	stop     chan struct{}
	stopOnce sync.Once
}

type HubOption func(*Hub)

// WithAutosave sets how often Run saves dirty rooms. Zero disables autosave.
func WithAutosave(d time.Duration) HubOption {
	return func(h *Hub) { h.autosave = d }
}

func NewHub(docs Documents, opts editor.Options, options ...HubOption) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &Hub{
		docs:     docs,
		opts:     opts,
		logger:   opts.Logger,
		autosave: DefaultAutosave,
		rooms:    make(map[string]*Room),
		stop:     make(chan struct{}),
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Run saves dirty rooms periodically until Stop is called.
func (h *Hub) Run() {
	if h.autosave <= 0 {
		<-h.stop
		return
	}
	ticker := time.NewTicker(h.autosave)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.autosave)
			h.SaveAll(ctx)
			cancel()
		case <-h.stop:
			return
		}
	}
}

// Open loads a design into a new room. A design that is already open yields
// ErrDesignBusy.
func (h *Hub) Open(ctx context.Context, designID, userID string) (*Room, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrHubStopped
	}
	if _, busy := h.rooms[designID]; busy {
		h.mu.Unlock()
		return nil, ErrDesignBusy
	}
	h.rooms[designID] = nil
	h.mu.Unlock()

	doc, version, err := h.docs.LoadDocument(ctx, designID, userID)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		delete(h.rooms, designID)
		return nil, err
	}

	room := &Room{
		designID:  designID,
		userID:    userID,
		sessionID: typeid.NewSessionID(),
		session:   editor.New(doc, h.opts),
		docs:      h.docs,
		logger:    h.logger,
		version:   version,
		saved:     doc,
	}
	h.rooms[designID] = room
	h.logger.Info("session opened", "design", designID, "user", userID, "session", room.sessionID)
	return room, nil
}

// Close saves the room and releases its design.
func (h *Hub) Close(ctx context.Context, room *Room) error {
	_, err := room.Save(ctx)

	h.mu.Lock()
	if h.rooms[room.designID] == room {
		delete(h.rooms, room.designID)
	}
	h.mu.Unlock()

	h.logger.Info("session closed", "design", room.designID, "session", room.sessionID)
	return err
}

// IsOpen reports whether a design currently has a room.
func (h *Hub) IsOpen(designID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[designID]
	return ok
}

// SaveAll saves every dirty room, logging failures.
func (h *Hub) SaveAll(ctx context.Context) {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		if r != nil {
			rooms = append(rooms, r)
		}
	}
	h.mu.Unlock()

	for _, r := range rooms {
		if _, err := r.Save(ctx); err != nil {
			h.logger.Error("autosave failed", "design", r.designID, "error", err)
		}
	}
}

// Stop refuses new rooms and saves all open documents.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		close(h.stop)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.SaveAll(ctx)
	})
}

// Handle upgrades r to a websocket editing session for designID and blocks until the
// client disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request, designID, userID string, opts *websocket.AcceptOptions) {
	room, err := h.Open(r.Context(), designID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDesignBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, design.ErrNotFound):
			http.Error(w, "design not found", http.StatusNotFound)
		case errors.Is(err, design.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, ErrHubStopped):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Error("open session", "design", designID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Error("websocket accept", "error", err)
		h.Close(context.Background(), room)
		return
	}

	client := NewClient(h, room, conn, uuid.New().String())
	client.Welcome()

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
