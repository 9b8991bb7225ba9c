package hub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rrrinav/Tanks/internal/engine"
	"github.com/Rrrinav/Tanks/internal/room"
	"github.com/Rrrinav/Tanks/internal/types"
)

var ErrInvalidRoomID = errors.New("invalid room id")
var ErrRoomExists = errors.New("room already exists")
var ErrRoomNotFound = errors.New("room not found")

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	minCodeLen = 4
	maxCodeLen = 8
)

// emptyGrace keeps a freshly created room alive long enough for its creator
// to join before the sweep considers it abandoned.
const emptyGrace = time.Minute

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	CustomID string // empty means generate
	Reply    chan CreateReply
}

type CreateReply struct {
	Code string
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// EnsureRoom returns the room, creating it when a join names a nonexistent
// code.
type EnsureRoom struct {
	Code  string
	Reply chan CreateReply
}

type ListRooms struct {
	Reply chan []types.RoomSummary
}

type RegisterConn struct {
	ConnID string
	Outbox chan []byte
}

type UnregisterConn struct{ ConnID string }

// Tick drives the stale-session sweep; tests send it directly instead of
// waiting on the wall-clock ticker.
type Tick struct{ Now time.Time }

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()     {}
func (GetRoom) isHubMsg()        {}
func (EnsureRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()      {}
func (RegisterConn) isHubMsg()   {}
func (UnregisterConn) isHubMsg() {}
func (Tick) isHubMsg()           {}
func (ShutdownHub) isHubMsg()    {}

type roomEntry struct {
	room      *room.Room
	players   int
	ready     int
	phase     engine.Phase
	createdAt time.Time
}

// Hub is the session registry actor. It owns the room map, the set of all
// live connection outboxes for lobby fanout, and the stale-room sweep. All
// of that state is touched only on the loop goroutine.
type Hub struct {
	inbox   chan HubMsg
	updates chan room.Update
	rooms   map[string]*roomEntry
	conns   map[string]chan []byte
	rules   engine.Rules
	maxAge  time.Duration
	codeLen int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type Options struct {
	Rules         engine.Rules
	MaxRoomAge    time.Duration
	SweepInterval time.Duration // 0 disables the ticker
	CodeLength    int
}

func NewHub(parent context.Context, opts Options, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.CodeLength < minCodeLen || opts.CodeLength > maxCodeLen {
		opts.CodeLength = 6
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		updates: make(chan room.Update, 64),
		rooms:   make(map[string]*roomEntry),
		conns:   make(map[string]chan []byte),
		rules:   opts.Rules,
		maxAge:  opts.MaxRoomAge,
		codeLen: opts.CodeLength,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	if opts.SweepInterval > 0 {
		go h.tickLoop(opts.SweepInterval)
	}
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) tickLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case now := <-t.C:
			select {
			case h.inbox <- Tick{Now: now}:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case u := <-h.updates:
			h.handleUpdate(u)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg.CustomID)

			case GetRoom:
				if e := h.rooms[normalize(msg.Code)]; e != nil {
					msg.Reply <- e.room
				} else {
					msg.Reply <- nil
				}

			case EnsureRoom:
				code := normalize(msg.Code)
				if e := h.rooms[code]; e != nil {
					msg.Reply <- CreateReply{Code: code, Room: e.room}
					break
				}
				msg.Reply <- h.create(msg.Code)

			case ListRooms:
				msg.Reply <- h.listing()

			case RegisterConn:
				h.conns[msg.ConnID] = msg.Outbox

			case UnregisterConn:
				delete(h.conns, msg.ConnID)

			case Tick:
				h.sweep(msg.Now)

			case ShutdownHub:
				for _, e := range h.rooms {
					e.room.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(customID string) CreateReply {
	var code string
	if customID != "" {
		c, err := ValidateRoomID(customID)
		if err != nil {
			return CreateReply{Err: err}
		}
		if h.rooms[c] != nil {
			return CreateReply{Err: ErrRoomExists}
		}
		code = c
	} else {
		for {
			c, err := generateCode(h.codeLen)
			if err != nil {
				return CreateReply{Err: err}
			}
			if h.rooms[c] == nil {
				code = c
				break
			}
		}
	}

	r := room.New(h.ctx, code, h.rules, h.updates, h.log)
	entry := &roomEntry{room: r, phase: engine.PhaseWaiting, createdAt: time.Now()}
	h.rooms[code] = entry
	h.log.Info("room created", zap.String("room", code))
	h.broadcast(types.RoomEvent{Type: types.TypeRoomCreatedBroadcast, Room: entry.summary(code)})
	return CreateReply{Code: code, Room: r}
}

func (h *Hub) handleUpdate(u room.Update) {
	e := h.rooms[u.Code]
	if e == nil {
		return
	}
	if u.Removed {
		delete(h.rooms, u.Code)
		h.log.Info("room removed", zap.String("room", u.Code))
		h.broadcast(types.RoomEvent{Type: types.TypeRoomRemoved, Room: types.RoomSummary{RoomID: u.Code}})
		return
	}
	e.players = u.Players
	e.ready = u.Ready
	e.phase = u.Phase
	e.createdAt = u.CreatedAt
	h.broadcast(types.RoomEvent{Type: types.TypeRoomUpdated, Room: e.summary(u.Code)})
}

func (h *Hub) sweep(now time.Time) {
	for code, e := range h.rooms {
		stale := now.Sub(e.createdAt) > h.maxAge
		abandoned := e.players == 0 && now.Sub(e.createdAt) > emptyGrace
		if !stale && !abandoned {
			continue
		}
		select {
		case e.room.Inbox() <- room.Shutdown{}:
		case <-e.room.Done():
		}
		delete(h.rooms, code)
		h.log.Info("room swept", zap.String("room", code),
			zap.Bool("stale", stale), zap.Int("players", e.players))
		h.broadcast(types.RoomEvent{Type: types.TypeRoomRemoved, Room: types.RoomSummary{RoomID: code}})
	}
}

func (h *Hub) listing() []types.RoomSummary {
	out := make([]types.RoomSummary, 0, len(h.rooms))
	for code, e := range h.rooms {
		out = append(out, e.summary(code))
	}
	return out
}

func (e *roomEntry) summary(code string) types.RoomSummary {
	return types.RoomSummary{
		RoomID:    code,
		Players:   e.players,
		Ready:     e.ready,
		Phase:     e.phase,
		CreatedAt: e.createdAt.Unix(),
	}
}

// broadcast fans a lobby notification out to every live connection. Sends
// never block; a full outbox just misses this notification.
func (h *Hub) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, ch := range h.conns {
		select {
		case ch <- payload:
		default:
		}
	}
}

func (h *Hub) shutdown() {
	for _, e := range h.rooms {
		select {
		case e.room.Inbox() <- room.Shutdown{}:
		case <-e.room.Done():
		}
	}
	clear(h.rooms)
	clear(h.conns)
	h.cancel()
}

// ValidateRoomID normalizes a custom room code: alphanumeric, 4-8 chars,
// uppercased for lookup.
func ValidateRoomID(id string) (string, error) {
	id = normalize(id)
	if len(id) < minCodeLen || len(id) > maxCodeLen {
		return "", ErrInvalidRoomID
	}
	for _, r := range id {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidRoomID
		}
	}
	return id, nil
}

func normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
