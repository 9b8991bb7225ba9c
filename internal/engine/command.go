package engine

import (
	"errors"

	"github.com/Rrrinav/Tanks/internal/board"
)

var ErrWrongPhase = errors.New("not allowed in current phase")
var ErrNotYourTurn = errors.New("not your turn")
var ErrActionTaken = errors.New("action already taken this turn")
var ErrSlotFull = errors.New("all units already placed")
var ErrRoomFull = errors.New("session already has two players")
var ErrNoSuchPlayer = errors.New("no player in that slot")
var ErrMoveOutOfRange = errors.New("destination out of movement range")

// Command is the closed set of gameplay intents the engine accepts.
// Membership decisions (join/leave) are separate operations, not commands,
// since they are legal in any phase.
type Command interface{ isCommand() }

type PlaceUnit struct {
	Slot int
	At   board.Coord
}

type MoveUnit struct {
	Slot int
	From board.Coord
	To   board.Coord
}

type Attack struct {
	Slot int
	At   board.Coord
}

func (PlaceUnit) isCommand() {}
func (MoveUnit) isCommand()  {}
func (Attack) isCommand()    {}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtPlayerLeft     EventType = "PlayerLeft"
	EvtPhaseChanged   EventType = "PhaseChanged"
	EvtSessionReset   EventType = "SessionReset"
	EvtUnitPlaced     EventType = "UnitPlaced"
	EvtSlotReady      EventType = "SlotReady"
	EvtUnitMoved      EventType = "UnitMoved"
	EvtAttackResolved EventType = "AttackResolved"
	EvtTurnEnding     EventType = "TurnEnding"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtGameCompleted  EventType = "GameCompleted"
)

type Event struct {
	Type   EventType
	Slot   int
	Name   string
	Phase  Phase
	At     board.Coord
	From   board.Coord
	To     board.Coord
	Result board.AttackResult
	Winner int
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
