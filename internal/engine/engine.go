package engine

import (
	"errors"
	"time"

	"github.com/Rrrinav/Tanks/internal/board"
)

var ErrUnsupportedCommand = errors.New("unsupported command")

// Join occupies the next free slot. Filling the second slot starts placement
// and resets the session clock so the stale sweep measures game age, not
// lobby age.
func Join(s *State, connID, name string) (int, []Event, error) {
	slot := -1
	for i, p := range s.Players {
		if p == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, nil, ErrRoomFull
	}

	s.Players[slot] = &Player{
		Slot:     slot,
		Name:     name,
		ConnID:   connID,
		Board:    board.New(s.Rules.BoardSize),
		Observed: board.New(s.Rules.BoardSize),
		JoinedAt: time.Now(),
	}
	events := []Event{{Type: EvtPlayerJoined, Slot: slot, Name: name}}

	if s.PlayerCount() == 2 {
		s.Phase = PhasePlacement
		s.CreatedAt = time.Now()
		events = append(events, Event{Type: EvtPhaseChanged, Phase: PhasePlacement})
	}
	return slot, events, nil
}

// RemovePlayer vacates a slot. A session left with exactly one player
// outside Waiting regresses to Waiting with fresh boards, so the survivor
// can restart placement instead of sitting in a dead game.
func RemovePlayer(s *State, slot int) ([]Event, error) {
	if slot < 0 || slot > 1 || s.Players[slot] == nil {
		return nil, ErrNoSuchPlayer
	}
	name := s.Players[slot].Name
	s.Players[slot] = nil
	events := []Event{{Type: EvtPlayerLeft, Slot: slot, Name: name}}

	if s.PlayerCount() == 1 && s.Phase != PhaseWaiting {
		survivor := s.Players[0]
		if survivor == nil {
			survivor = s.Players[1]
		}
		survivor.Slot = 0
		survivor.Board = board.New(s.Rules.BoardSize)
		survivor.Observed = board.New(s.Rules.BoardSize)
		survivor.Ready = false
		s.Players[0], s.Players[1] = survivor, nil

		s.Phase = PhaseWaiting
		s.Turn = 0
		s.ActionTaken = false
		s.MoveCount = 0
		s.Winner = NoWinner
		events = append(events,
			Event{Type: EvtSessionReset},
			Event{Type: EvtPhaseChanged, Phase: PhaseWaiting},
		)
	}
	return events, nil
}

// Apply validates and executes one gameplay command. It never switches the
// turn itself: commands that spend the turn emit TurnEnding and leave the
// ActionTaken guard set until the caller runs EndTurn, so intents already
// queued behind an accepted action are rejected rather than double-acting.
func Apply(s *State, cmd Command) ([]Event, error) {
	switch c := cmd.(type) {
	case PlaceUnit:
		return applyPlace(s, c)
	case MoveUnit:
		return applyMove(s, c)
	case Attack:
		return applyAttack(s, c)
	default:
		return nil, ErrUnsupportedCommand
	}
}

// EndTurn hands the turn to the other slot and clears the guard. Safe to
// call after the game ended or reset in the meantime; it only acts when a
// battle turn is actually pending.
func EndTurn(s *State) []Event {
	if s.Phase != PhaseBattle || !s.ActionTaken {
		return nil
	}
	s.Turn = 1 - s.Turn
	s.ActionTaken = false
	s.MoveCount++
	return []Event{{Type: EvtTurnAdvanced, Slot: s.Turn}}
}

// Placement is simultaneous, not turn-based, and is also accepted while
// Waiting so a lone player can set up before an opponent arrives.
func applyPlace(s *State, cmd PlaceUnit) ([]Event, error) {
	if s.Phase != PhasePlacement && s.Phase != PhaseWaiting {
		return nil, ErrWrongPhase
	}
	if cmd.Slot < 0 || cmd.Slot > 1 || s.Players[cmd.Slot] == nil {
		return nil, ErrNoSuchPlayer
	}
	p := s.Players[cmd.Slot]
	if len(p.Board.Units) >= s.Rules.UnitsPerPlayer {
		return nil, ErrSlotFull
	}
	if err := p.Board.Place(cmd.At); err != nil {
		return nil, err
	}

	events := []Event{{Type: EvtUnitPlaced, Slot: cmd.Slot, At: cmd.At}}
	if len(p.Board.Units) == s.Rules.UnitsPerPlayer {
		p.Ready = true
		events = append(events, Event{Type: EvtSlotReady, Slot: cmd.Slot})
	}

	if s.PlayerCount() == 2 && s.Players[0].Ready && s.Players[1].Ready {
		s.Phase = PhaseBattle
		s.Turn = 0
		events = append(events, Event{Type: EvtPhaseChanged, Phase: PhaseBattle})
	}
	return events, nil
}

func battlePreconditions(s *State, slot int) error {
	if s.Phase != PhaseBattle {
		return ErrWrongPhase
	}
	if slot < 0 || slot > 1 || s.Players[slot] == nil {
		return ErrNoSuchPlayer
	}
	if slot != s.Turn {
		return ErrNotYourTurn
	}
	if s.ActionTaken {
		return ErrActionTaken
	}
	return nil
}

func applyMove(s *State, cmd MoveUnit) ([]Event, error) {
	if err := battlePreconditions(s, cmd.Slot); err != nil {
		return nil, err
	}
	if board.Chebyshev(cmd.From, cmd.To) > s.Rules.MoveRadius {
		return nil, ErrMoveOutOfRange
	}
	if err := s.Players[cmd.Slot].Board.Move(cmd.From, cmd.To); err != nil {
		return nil, err
	}

	events := []Event{{Type: EvtUnitMoved, Slot: cmd.Slot, From: cmd.From, To: cmd.To}}
	if s.Rules.MoveConsumesTurn {
		s.ActionTaken = true
		events = append(events, Event{Type: EvtTurnEnding})
	}
	return events, nil
}

func applyAttack(s *State, cmd Attack) ([]Event, error) {
	if err := battlePreconditions(s, cmd.Slot); err != nil {
		return nil, err
	}
	attacker := s.Players[cmd.Slot]
	defender := s.Opponent(cmd.Slot)

	result, err := board.Attack(attacker.Observed, defender.Board, cmd.At)
	if err != nil {
		return nil, err
	}

	events := []Event{{Type: EvtAttackResolved, Slot: cmd.Slot, At: cmd.At, Result: result}}

	if result == board.ResultHit && defender.Board.Alive == 0 {
		s.Phase = PhaseGameOver
		s.Winner = cmd.Slot
		events = append(events,
			Event{Type: EvtPhaseChanged, Phase: PhaseGameOver},
			Event{Type: EvtGameCompleted, Winner: cmd.Slot},
		)
		return events, nil
	}

	board.Reveal(attacker.Observed, defender.Board, cmd.At, s.Rules.RevealRadius)
	s.ActionTaken = true
	events = append(events, Event{Type: EvtTurnEnding})
	return events, nil
}
