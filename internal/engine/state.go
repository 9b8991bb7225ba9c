package engine

import (
	"time"

	"github.com/Rrrinav/Tanks/internal/board"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePlacement Phase = "placement"
	PhaseBattle    Phase = "battle"
	PhaseGameOver  Phase = "gameover"
)

// NoWinner is the Winner value while a game is undecided.
const NoWinner = -1

// Rules are the tunable gameplay constants. Movement range and whether a
// move spends the turn are deliberately configuration, not constants; the
// game's iterations disagreed on both.
type Rules struct {
	BoardSize        int
	UnitsPerPlayer   int
	RevealRadius     int
	MoveRadius       int
	MoveConsumesTurn bool
}

func DefaultRules() Rules {
	return Rules{
		BoardSize:        10,
		UnitsPerPlayer:   3,
		RevealRadius:     1,
		MoveRadius:       1,
		MoveConsumesTurn: true,
	}
}

// Player is one occupied slot: the authoritative own board plus the
// fog-of-war projection of the opponent's board.
type Player struct {
	Slot     int
	Name     string
	ConnID   string
	Board    *board.Board
	Observed *board.Board
	Ready    bool
	JoinedAt time.Time
}

// State is one session's full game state. All access is serialized by the
// owning room actor; nothing here is safe for concurrent use.
type State struct {
	Code        string
	Phase       Phase
	Players     [2]*Player
	Turn        int
	ActionTaken bool
	MoveCount   int
	Winner      int
	Rules       Rules
	CreatedAt   time.Time
}

func NewState(code string, rules Rules) *State {
	return &State{
		Code:      code,
		Phase:     PhaseWaiting,
		Winner:    NoWinner,
		Rules:     rules,
		CreatedAt: time.Now(),
	}
}

// PlayerCount reports how many slots are occupied.
func (s *State) PlayerCount() int {
	n := 0
	for _, p := range s.Players {
		if p != nil {
			n++
		}
	}
	return n
}

// Opponent returns the other occupied slot, or nil.
func (s *State) Opponent(slot int) *Player {
	if slot != 0 && slot != 1 {
		return nil
	}
	return s.Players[1-slot]
}
