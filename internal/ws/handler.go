package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Rrrinav/Tanks/internal/board"
	"github.com/Rrrinav/Tanks/internal/hub"
	"github.com/Rrrinav/Tanks/internal/room"
	"github.com/Rrrinav/Tanks/internal/types"
)

const writeTimeout = 3 * time.Second

// conn is one websocket connection's state: its identity, its outbox (shared
// with the room actor and the hub's lobby fanout) and the room it is
// currently bound to, if any.
type conn struct {
	id     string
	outbox chan []byte
	hub    *hub.Hub
	cur    *room.Room
	log    *zap.Logger
}

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "bye")

		c := &conn{
			id:     randID(8),
			outbox: make(chan []byte, 32),
			hub:    h,
		}
		c.log = log.With(zap.String("conn", c.id))

		h.Inbox() <- hub.RegisterConn{ConnID: c.id, Outbox: c.outbox}
		defer func() {
			c.leaveRoom()
			h.Inbox() <- hub.UnregisterConn{ConnID: c.id}
		}()

		// Writer goroutine: drains the outbox for the connection's lifetime.
		// A write failure means the peer is gone; the reader will notice too.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case payload := <-c.outbox:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := ws.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						// A failed send is an implicit disconnect: closing
						// the connection errors the reader loop, which runs
						// the leave path.
						_ = ws.Close(websocket.StatusInternalError, "write failure")
						return
					}
				}
			}
		}()

		for {
			_, data, err := ws.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var m types.ClientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				c.send(types.ErrorMsg{Type: types.TypeError, Message: "bad json"})
				continue
			}
			c.dispatch(m)
		}
	}
}

func (c *conn) dispatch(m types.ClientMessage) {
	switch m.Type {
	case types.MsgJoin:
		c.handleJoin(m)

	case types.MsgCreate:
		reply := make(chan hub.CreateReply, 1)
		c.hub.Inbox() <- hub.CreateRoom{CustomID: m.CustomRoomID, Reply: reply}
		res := <-reply
		if res.Err != nil {
			c.send(types.RoomCreated{Type: types.TypeRoomCreated, Error: res.Err.Error()})
			return
		}
		c.send(types.RoomCreated{Type: types.TypeRoomCreated, Success: true, RoomID: res.Code})

	case types.MsgListRooms:
		reply := make(chan []types.RoomSummary, 1)
		c.hub.Inbox() <- hub.ListRooms{Reply: reply}
		c.send(types.RoomsList{Type: types.TypeRoomsList, Rooms: <-reply})

	case types.MsgPlaceUnit:
		c.toRoom(room.Place{ConnID: c.id, At: board.Coord{X: m.X, Y: m.Y}})

	case types.MsgMoveUnit:
		c.toRoom(room.Move{
			ConnID: c.id,
			From:   board.Coord{X: m.FromX, Y: m.FromY},
			To:     board.Coord{X: m.ToX, Y: m.ToY},
		})

	case types.MsgAttack:
		c.toRoom(room.Attack{ConnID: c.id, At: board.Coord{X: m.X, Y: m.Y}})

	case types.MsgChat:
		c.toRoom(room.Chat{ConnID: c.id, Text: m.Text})

	case types.MsgGetState:
		c.toRoom(room.GetState{ConnID: c.id})

	case types.MsgLeave:
		c.leaveRoom()

	default:
		// Unknown intents are not fatal; log and move on.
		c.log.Info("unknown intent", zap.String("type", m.Type))
	}
}

func (c *conn) handleJoin(m types.ClientMessage) {
	// Joining while bound elsewhere is an idempotent leave first.
	c.leaveRoom()

	reply := make(chan hub.CreateReply, 1)
	if m.RoomID == "" {
		c.hub.Inbox() <- hub.CreateRoom{Reply: reply}
	} else {
		c.hub.Inbox() <- hub.EnsureRoom{Code: m.RoomID, Reply: reply}
	}
	res := <-reply
	if res.Err != nil {
		c.send(types.Joined{Type: types.TypeJoined, SlotID: -1, Error: res.Err.Error()})
		return
	}

	jr := make(chan room.JoinReply, 1)
	select {
	case res.Room.Inbox() <- room.Join{ConnID: c.id, Name: m.DisplayName, Outbox: c.outbox, Reply: jr}:
	case <-res.Room.Done():
		c.send(types.Joined{Type: types.TypeJoined, SlotID: -1, Error: hub.ErrRoomNotFound.Error()})
		return
	}
	var j room.JoinReply
	select {
	case j = <-jr:
	case <-res.Room.Done():
		// The actor may have answered the queued join just before exiting.
		select {
		case j = <-jr:
		default:
			c.send(types.Joined{Type: types.TypeJoined, SlotID: -1, Error: hub.ErrRoomNotFound.Error()})
			return
		}
	}
	if j.Err != nil {
		c.send(types.Joined{Type: types.TypeJoined, SlotID: -1, Error: j.Err.Error()})
		return
	}

	c.cur = res.Room
	c.send(types.Joined{
		Type:           types.TypeJoined,
		Success:        true,
		RoomID:         res.Code,
		SlotID:         j.Slot,
		DisplayName:    j.Name,
		BoardSize:      j.Rules.BoardSize,
		UnitsPerPlayer: j.Rules.UnitsPerPlayer,
	})
}

// toRoom forwards a gameplay intent to the bound room. Racing against a
// shutdown room is answered as not-found rather than blocking.
func (c *conn) toRoom(msg room.Msg) {
	if c.cur == nil {
		c.send(types.ErrorMsg{Type: types.TypeError, Message: hub.ErrRoomNotFound.Error()})
		return
	}
	select {
	case c.cur.Inbox() <- msg:
	case <-c.cur.Done():
		c.cur = nil
		c.send(types.ErrorMsg{Type: types.TypeError, Message: hub.ErrRoomNotFound.Error()})
	}
}

func (c *conn) leaveRoom() {
	if c.cur == nil {
		return
	}
	select {
	case c.cur.Inbox() <- room.Leave{ConnID: c.id}:
	case <-c.cur.Done():
	}
	c.cur = nil
}

// send queues a payload for this connection's own writer. Non-blocking for
// the same reason room broadcasts are: a stalled writer must not stall the
// reader loop.
func (c *conn) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.outbox <- payload:
	default:
		c.log.Warn("outbox full, dropping reply")
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
