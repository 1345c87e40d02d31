package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"

	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
)

type Client struct {
	hub      *Hub
	room     *Room
	conn     *websocket.Conn
	send     chan []byte
	ClientID string
}

func NewClient(hub *Hub, room *Room, conn *websocket.Conn, clientID string) *Client {
	return &Client{
		hub:      hub,
		room:     room,
		conn:     conn,
		send:     make(chan []byte, 256),
		ClientID: clientID,
	}
}

// Welcome queues the welcome message and the initial document state.
func (c *Client) Welcome() {
	c.sendPayload(TypeWelcome, 0, WelcomePayload{
		SessionID: c.room.sessionID,
		ClientID:  c.ClientID,
		DesignID:  c.room.designID,
	})
	c.sendPayload(TypeDocSync, 0, c.room.Sync())
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		if err := c.hub.Close(context.Background(), c.room); err != nil {
			c.hub.logger.Error("save on close", "design", c.room.designID, "error", err)
		}
		close(c.send)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			c.hub.logger.Debug("read error", "error", err, "design", c.room.designID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Warn("invalid message", "error", err, "design", c.room.designID)
			c.sendError("invalid message")
			continue
		}

		c.handleMessage(ctx, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.logger.Debug("write error", "error", err, "design", c.room.designID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypeOpSubmit:
		var p OperationSubmitPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("invalid operation payload")
			return
		}
		if p.Operation.ID == "" {
			p.Operation.ID = typeid.NewOpID()
		}
		seq, result, changed, err := c.room.Submit(p.Operation)
		if err != nil {
			c.sendPayload(TypeOpNack, 0, OperationNackPayload{OperationID: p.Operation.ID, Reason: err.Error()})
			return
		}
		c.sendPayload(TypeOpAck, seq, OperationAckPayload{OperationID: p.Operation.ID, ServerSeq: seq, Result: result})
		if changed {
			c.sendPayload(TypeDocSync, seq, c.room.Sync())
		}

	case TypeDocSync:
		c.sendPayload(TypeDocSync, 0, c.room.Sync())

	case TypeDocSave:
		version, err := c.room.Save(ctx)
		if err != nil {
			c.hub.logger.Error("save design", "design", c.room.designID, "error", err)
			c.sendError(err.Error())
			return
		}
		c.sendPayload(TypeDocSaved, 0, SavedPayload{Version: version})

	default:
		c.hub.logger.Warn("unknown message type", "type", msg.Type, "design", c.room.designID)
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) sendError(message string) {
	c.sendPayload(TypeError, 0, ErrorPayload{Message: message})
}

func (c *Client) sendPayload(typ string, seq int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.hub.logger.Error("marshal payload", "type", typ, "error", err)
		return
	}
	c.Send(&Message{Type: typ, DesignID: c.room.designID, ClientID: c.ClientID, UserID: c.room.userID, Seq: seq, Payload: data})
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("client send buffer full, dropping message", "design", c.room.designID)
	}
}
