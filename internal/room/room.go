package room

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Rrrinav/Tanks/internal/board"
	"github.com/Rrrinav/Tanks/internal/engine"
	"github.com/Rrrinav/Tanks/internal/types"
)

// ErrClosed answers intents that were still queued when the room actor
// stopped.
var ErrClosed = errors.New("session closed")

type Msg interface{ isRoomMsg() }

type Join struct {
	ConnID string
	Name   string
	Outbox chan []byte
	Reply  chan JoinReply
}

type JoinReply struct {
	Slot  int
	Name  string
	Rules engine.Rules
	Err   error
}

type Leave struct{ ConnID string }

type Place struct {
	ConnID string
	At     board.Coord
}

type Move struct {
	ConnID   string
	From, To board.Coord
}

type Attack struct {
	ConnID string
	At     board.Coord
}

type Chat struct {
	ConnID string
	Text   string
}

type GetState struct{ ConnID string }

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan Snapshot }

type Shutdown struct{}

// advanceTurn is self-posted after an accepted battle action; intents queued
// between the action and this message hit the ActionTaken guard.
type advanceTurn struct{}

func (Join) isRoomMsg()        {}
func (Leave) isRoomMsg()       {}
func (Place) isRoomMsg()       {}
func (Move) isRoomMsg()        {}
func (Attack) isRoomMsg()      {}
func (Chat) isRoomMsg()        {}
func (GetState) isRoomMsg()    {}
func (GetView) isRoomMsg()     {}
func (Shutdown) isRoomMsg()    {}
func (advanceTurn) isRoomMsg() {}

type Snapshot struct {
	Code       string
	Phase      engine.Phase
	Players    int
	NumClients int
	Turn       int
	MoveCount  int
	Winner     int
	Views      [2]engine.View
	CreatedAt  time.Time
}

// Update is a lobby-visible room change, drained by the hub and fanned out
// to every connection.
type Update struct {
	Code      string
	Players   int
	Ready     int
	Phase     engine.Phase
	CreatedAt time.Time
	Removed   bool
}

// Room is one session's actor. All state access happens on the loop
// goroutine; the outside world only talks through the inbox.
type Room struct {
	inbox   chan Msg
	state   *engine.State
	clients map[string]chan []byte
	updates chan<- Update
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, code string, rules engine.Rules, updates chan<- Update, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   engine.NewState(code, rules),
		clients: make(map[string]chan []byte),
		updates: updates,
		log:     log.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room actor has stopped; senders should select on
// it to avoid queueing into a dead room.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				if r.handleLeave(msg) {
					return
				}
			case Place:
				r.handlePlace(msg)
			case Move:
				r.handleMove(msg)
			case Attack:
				r.handleAttack(msg)
			case Chat:
				r.handleChat(msg)
			case GetState:
				r.sendTo(msg.ConnID, types.SessionState{
					Type: types.TypeSessionState,
					View: engine.RenderFor(r.state, r.slotOf(msg.ConnID)),
				})
			case GetView:
				msg.Reply <- r.snapshot()
			case advanceTurn:
				engine.EndTurn(r.state)
				r.broadcastState()
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	name := msg.Name
	if name == "" {
		name = "Player" + strconv.Itoa(r.state.PlayerCount()+1)
	}
	slot, _, err := engine.Join(r.state, msg.ConnID, name)
	if err != nil {
		msg.Reply <- JoinReply{Err: err}
		return
	}
	r.clients[msg.ConnID] = msg.Outbox
	msg.Reply <- JoinReply{Slot: slot, Name: name, Rules: r.state.Rules}

	r.log.Info("player joined", zap.String("name", name), zap.Int("slot", slot))
	r.broadcastState()
	r.notifyLobby(false)
}

// handleLeave reports true when the room emptied and the loop should exit.
func (r *Room) handleLeave(msg Leave) bool {
	slot := r.slotOf(msg.ConnID)
	if _, ok := r.clients[msg.ConnID]; ok {
		r.sendTo(msg.ConnID, types.LeftSession{Type: types.TypeLeftSession, Success: true})
		delete(r.clients, msg.ConnID)
	}
	if slot < 0 {
		return false
	}

	events, err := engine.RemovePlayer(r.state, slot)
	if err != nil {
		return false
	}
	var name string
	for _, ev := range events {
		if ev.Type == engine.EvtPlayerLeft {
			name = ev.Name
		}
	}
	r.log.Info("player left", zap.String("name", name), zap.Int("slot", slot))

	if r.state.PlayerCount() == 0 {
		r.notifyLobby(true)
		r.shutdown()
		return true
	}

	r.broadcastAll(types.PlayerDisconnected{
		Type:        types.TypePlayerDisconnected,
		DisplayName: name,
		SlotID:      slot,
	})
	r.broadcastState()
	r.notifyLobby(false)
	return false
}

func (r *Room) handlePlace(msg Place) {
	slot := r.slotOf(msg.ConnID)
	events, err := engine.Apply(r.state, engine.PlaceUnit{Slot: slot, At: msg.At})
	if err != nil {
		r.sendTo(msg.ConnID, types.PlaceResult{
			Type: types.TypePlaceResult, X: msg.At.X, Y: msg.At.Y, Error: err.Error(),
		})
		return
	}
	r.sendTo(msg.ConnID, types.PlaceResult{
		Type: types.TypePlaceResult, Success: true, X: msg.At.X, Y: msg.At.Y,
	})
	r.broadcastState()
	if engine.ContainsEvent(events, engine.EvtPhaseChanged) || engine.ContainsEvent(events, engine.EvtSlotReady) {
		r.notifyLobby(false)
	}
}

func (r *Room) handleMove(msg Move) {
	slot := r.slotOf(msg.ConnID)
	events, err := engine.Apply(r.state, engine.MoveUnit{Slot: slot, From: msg.From, To: msg.To})
	if err != nil {
		r.sendTo(msg.ConnID, types.MoveResult{Type: types.TypeMoveResult, Error: err.Error()})
		return
	}
	r.sendTo(msg.ConnID, types.MoveResult{Type: types.TypeMoveResult, Success: true})
	if engine.ContainsEvent(events, engine.EvtTurnEnding) {
		r.queueAdvance()
	} else {
		r.broadcastState()
	}
}

func (r *Room) handleAttack(msg Attack) {
	slot := r.slotOf(msg.ConnID)
	events, err := engine.Apply(r.state, engine.Attack{Slot: slot, At: msg.At})
	if err != nil {
		if errors.Is(err, board.ErrAlreadyAttacked) {
			r.sendTo(msg.ConnID, types.AttackResult{
				Type: types.TypeAttackResult, Result: string(board.ResultAlreadyAttacked),
			})
			return
		}
		r.sendTo(msg.ConnID, types.ErrorMsg{Type: types.TypeError, Message: err.Error()})
		return
	}

	var result board.AttackResult
	for _, ev := range events {
		if ev.Type == engine.EvtAttackResolved {
			result = ev.Result
		}
	}
	gameOver := engine.ContainsEvent(events, engine.EvtGameCompleted)
	r.sendTo(msg.ConnID, types.AttackResult{
		Type: types.TypeAttackResult, Result: string(result), GameOver: gameOver,
	})

	if gameOver {
		r.log.Info("game over", zap.Int("winner", r.state.Winner), zap.Int("moves", r.state.MoveCount))
		r.broadcastState()
		r.notifyLobby(false)
		return
	}
	r.queueAdvance()
}

func (r *Room) handleChat(msg Chat) {
	slot := r.slotOf(msg.ConnID)
	if slot < 0 {
		return
	}
	r.broadcastAll(types.Chat{
		Type:        types.TypeChat,
		SlotID:      slot,
		DisplayName: r.state.Players[slot].Name,
		Text:        msg.Text,
		Timestamp:   time.Now().Unix(),
	})
}

// queueAdvance defers the turn switch to a follow-up inbox message so that
// a second intent already queued behind the accepted action is answered
// with the guard error rather than acting on the new turn. If the inbox is
// full the switch happens inline instead, and such an intent is rejected as
// out-of-turn rather than as a repeat; either rejection leaves the state
// untouched.
func (r *Room) queueAdvance() {
	select {
	case r.inbox <- advanceTurn{}:
	default:
		engine.EndTurn(r.state)
		r.broadcastState()
	}
}

func (r *Room) slotOf(connID string) int {
	for i, p := range r.state.Players {
		if p != nil && p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) broadcastState() {
	for _, p := range r.state.Players {
		if p == nil {
			continue
		}
		r.sendTo(p.ConnID, types.SessionState{
			Type: types.TypeSessionState,
			View: engine.RenderFor(r.state, p.Slot),
		})
	}
}

func (r *Room) broadcastAll(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	for connID := range r.clients {
		r.push(connID, payload)
	}
}

func (r *Room) sendTo(connID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.push(connID, payload)
}

// push is fire-and-forget. Outboxes are shared with the hub's lobby fanout
// and drained by the connection's writer goroutine, so the room never closes
// them; a full buffer just drops the payload and the transport layer is
// left to notice the dead connection.
func (r *Room) push(connID string, payload []byte) {
	ch, ok := r.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- payload:
	default:
		r.log.Warn("outbox full, dropping payload", zap.String("conn", connID))
	}
}

func (r *Room) notifyLobby(removed bool) {
	ready := 0
	for _, p := range r.state.Players {
		if p != nil && p.Ready {
			ready++
		}
	}
	u := Update{
		Code:      r.state.Code,
		Players:   r.state.PlayerCount(),
		Ready:     ready,
		Phase:     r.state.Phase,
		CreatedAt: r.state.CreatedAt,
		Removed:   removed,
	}
	select {
	case r.updates <- u:
	case <-r.ctx.Done():
	}
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		Code:       r.state.Code,
		Phase:      r.state.Phase,
		Players:    r.state.PlayerCount(),
		NumClients: len(r.clients),
		Turn:       r.state.Turn,
		MoveCount:  r.state.MoveCount,
		Winner:     r.state.Winner,
		CreatedAt:  r.state.CreatedAt,
	}
	for i := range r.state.Players {
		if r.state.Players[i] != nil {
			s.Views[i] = engine.RenderFor(r.state, i)
		}
	}
	return s
}

func (r *Room) shutdown() {
	clear(r.clients)
	r.cancel()
	// Drain intents that were queued behind the final Leave or a sweep
	// Shutdown: anything carrying a reply channel must still be answered or
	// the sender blocks forever.
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- JoinReply{Err: ErrClosed}
			case GetView:
				msg.Reply <- r.snapshot()
			}
		default:
			return
		}
	}
}
