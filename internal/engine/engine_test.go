package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rrrinav/Tanks/internal/board"
)

func testRules() Rules {
	return Rules{
		BoardSize:        5,
		UnitsPerPlayer:   3,
		RevealRadius:     1,
		MoveRadius:       1,
		MoveConsumesTurn: true,
	}
}

// newBattleState joins two players and places both sides' units so the
// session sits at the start of Battle with slot 0 to act.
func newBattleState(t *testing.T) *State {
	t.Helper()
	s := NewState("TEST01", testRules())

	_, _, err := Join(s, "c0", "P0")
	require.NoError(t, err)
	require.Equal(t, PhaseWaiting, s.Phase)

	_, _, err = Join(s, "c1", "P1")
	require.NoError(t, err)
	require.Equal(t, PhasePlacement, s.Phase)

	for x := 0; x < 3; x++ {
		_, err = Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: x, Y: 0}})
		require.NoError(t, err)
		_, err = Apply(s, PlaceUnit{Slot: 1, At: board.Coord{X: x, Y: 4}})
		require.NoError(t, err)
	}
	require.Equal(t, PhaseBattle, s.Phase)
	require.Equal(t, 0, s.Turn)
	return s
}

func requireAliveMatchesBoard(t *testing.T, s *State) {
	t.Helper()
	for _, p := range s.Players {
		if p == nil {
			continue
		}
		occupied := 0
		for _, row := range p.Board.Cells {
			for _, cell := range row {
				if cell == board.Occupied {
					occupied++
				}
			}
		}
		require.Equal(t, occupied, p.Board.Alive, "slot %d alive count out of sync", p.Slot)
	}
}

func TestJoinThirdPlayerRejected(t *testing.T) {
	s := NewState("TEST01", testRules())
	_, _, err := Join(s, "c0", "P0")
	require.NoError(t, err)
	_, _, err = Join(s, "c1", "P1")
	require.NoError(t, err)
	_, _, err = Join(s, "c2", "P2")
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestPlacementLimitsAndReadiness(t *testing.T) {
	s := NewState("TEST01", testRules())
	_, _, err := Join(s, "c0", "P0")
	require.NoError(t, err)
	_, _, err = Join(s, "c1", "P1")
	require.NoError(t, err)

	for x := 0; x < 3; x++ {
		events, err := Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: x, Y: 0}})
		require.NoError(t, err)
		if x == 2 {
			require.True(t, ContainsEvent(events, EvtSlotReady))
		}
		requireAliveMatchesBoard(t, s)
	}
	require.True(t, s.Players[0].Ready)

	_, err = Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: 3, Y: 0}})
	require.ErrorIs(t, err, ErrSlotFull)

	// Battle has not begun: no gameplay actions yet.
	_, err = Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestScenarioA_FirstHit(t *testing.T) {
	s := newBattleState(t)

	events, err := Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtAttackResolved))
	require.True(t, ContainsEvent(events, EvtTurnEnding))

	var resolved Event
	for _, ev := range events {
		if ev.Type == EvtAttackResolved {
			resolved = ev
		}
	}
	require.Equal(t, board.ResultHit, resolved.Result)
	require.Equal(t, 2, s.Players[1].Board.Alive)
	requireAliveMatchesBoard(t, s)

	EndTurn(s)
	require.Equal(t, 1, s.Turn)
	require.False(t, s.ActionTaken)
	require.Equal(t, 1, s.MoveCount)
}

func TestScenarioB_SecondActionBeforeTurnSwitch(t *testing.T) {
	s := newBattleState(t)

	_, err := Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.NoError(t, err)

	// Guard is still held until EndTurn runs.
	_, err = Apply(s, Attack{Slot: 0, At: board.Coord{X: 1, Y: 4}})
	require.ErrorIs(t, err, ErrActionTaken)
	require.Equal(t, 2, s.Players[1].Board.Alive)
	require.Equal(t, 0, s.MoveCount)
	requireAliveMatchesBoard(t, s)
}

func TestScenarioC_MissRevealsFootprint(t *testing.T) {
	s := newBattleState(t)

	_, err := Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.NoError(t, err)
	EndTurn(s)

	events, err := Apply(s, Attack{Slot: 1, At: board.Coord{X: 3, Y: 2}})
	require.NoError(t, err)
	var resolved Event
	for _, ev := range events {
		if ev.Type == EvtAttackResolved {
			resolved = ev
		}
	}
	require.Equal(t, board.ResultMiss, resolved.Result)

	observed := s.Players[1].Observed
	require.Equal(t, board.Miss, observed.At(board.Coord{X: 3, Y: 2}))
	for y := 1; y <= 3; y++ {
		for x := 2; x <= 4; x++ {
			require.NotEqual(t, board.Empty, observed.At(board.Coord{X: x, Y: y}),
				"cell (%d,%d) should be disclosed", x, y)
		}
	}

	EndTurn(s)
	require.Equal(t, 0, s.Turn)
}

func TestScenarioD_EliminationEndsGame(t *testing.T) {
	s := newBattleState(t)

	attacks := []struct {
		slot int
		at   board.Coord
	}{
		{0, board.Coord{X: 0, Y: 4}}, // hit
		{1, board.Coord{X: 4, Y: 0}}, // miss
		{0, board.Coord{X: 1, Y: 4}}, // hit
		{1, board.Coord{X: 3, Y: 2}}, // miss
		{0, board.Coord{X: 2, Y: 4}}, // final hit
	}
	var last []Event
	for _, a := range attacks {
		events, err := Apply(s, Attack{Slot: a.slot, At: a.at})
		require.NoError(t, err)
		requireAliveMatchesBoard(t, s)
		last = events
		EndTurn(s)
	}

	require.True(t, ContainsEvent(last, EvtGameCompleted))
	require.Equal(t, PhaseGameOver, s.Phase)
	require.Equal(t, 0, s.Winner)
	require.Equal(t, 0, s.Players[1].Board.Alive)

	// Terminal: no further gameplay intents from either slot.
	_, err := Apply(s, Attack{Slot: 1, At: board.Coord{X: 4, Y: 4}})
	require.ErrorIs(t, err, ErrWrongPhase)
	_, err = Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 0, Y: 0}, To: board.Coord{X: 0, Y: 1}})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestScenarioE_LoneSurvivorResets(t *testing.T) {
	s := newBattleState(t)

	events, err := RemovePlayer(s, 0)
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtSessionReset))

	require.Equal(t, PhaseWaiting, s.Phase)
	require.Equal(t, 1, s.PlayerCount())
	require.NotNil(t, s.Players[0])
	require.Nil(t, s.Players[1])
	require.Equal(t, "P1", s.Players[0].Name)
	require.Equal(t, 0, s.Players[0].Slot)
	require.Equal(t, 0, s.Turn)
	require.Equal(t, 0, s.Players[0].Board.Alive)

	// Fresh placement works immediately, as if the session were new.
	_, err = Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: 2, Y: 2}})
	require.NoError(t, err)
	requireAliveMatchesBoard(t, s)
}

func TestAttackAlreadyAttackedLeavesStateAlone(t *testing.T) {
	s := newBattleState(t)

	_, err := Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.NoError(t, err)
	EndTurn(s)
	_, err = Apply(s, Attack{Slot: 1, At: board.Coord{X: 3, Y: 2}})
	require.NoError(t, err)
	EndTurn(s)

	// Slot 0 re-attacks the cell it already hit.
	_, err = Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.ErrorIs(t, err, board.ErrAlreadyAttacked)
	require.False(t, s.ActionTaken)
	require.Equal(t, 0, s.Turn)
	require.Equal(t, 2, s.Players[1].Board.Alive)
	requireAliveMatchesBoard(t, s)
}

func TestTurnOwnershipEnforced(t *testing.T) {
	s := newBattleState(t)

	_, err := Apply(s, Attack{Slot: 1, At: board.Coord{X: 0, Y: 0}})
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestMoveConsumesTurn(t *testing.T) {
	s := newBattleState(t)

	_, err := Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 0, Y: 0}, To: board.Coord{X: 0, Y: 2}})
	require.ErrorIs(t, err, ErrMoveOutOfRange)

	events, err := Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 0, Y: 0}, To: board.Coord{X: 0, Y: 1}})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtTurnEnding))
	require.True(t, s.ActionTaken)

	_, err = Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.ErrorIs(t, err, ErrActionTaken)

	EndTurn(s)
	require.Equal(t, 1, s.Turn)
}

func TestFreeMoveRuleVariant(t *testing.T) {
	rules := testRules()
	rules.MoveConsumesTurn = false
	s := NewState("TEST01", rules)
	_, _, err := Join(s, "c0", "P0")
	require.NoError(t, err)
	_, _, err = Join(s, "c1", "P1")
	require.NoError(t, err)
	for x := 0; x < 3; x++ {
		_, err = Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: x, Y: 0}})
		require.NoError(t, err)
		_, err = Apply(s, PlaceUnit{Slot: 1, At: board.Coord{X: x, Y: 4}})
		require.NoError(t, err)
	}

	// With the variant rule a move does not spend the turn; the attack does.
	events, err := Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 0, Y: 0}, To: board.Coord{X: 0, Y: 1}})
	require.NoError(t, err)
	require.False(t, ContainsEvent(events, EvtTurnEnding))
	require.False(t, s.ActionTaken)

	_, err = Apply(s, Attack{Slot: 0, At: board.Coord{X: 0, Y: 4}})
	require.NoError(t, err)
	require.True(t, s.ActionTaken)
}

func TestMoveRadiusIsConfigurable(t *testing.T) {
	rules := testRules()
	rules.MoveRadius = 2
	s := NewState("TEST01", rules)
	_, _, err := Join(s, "c0", "P0")
	require.NoError(t, err)
	_, _, err = Join(s, "c1", "P1")
	require.NoError(t, err)
	for x := 0; x < 3; x++ {
		_, err = Apply(s, PlaceUnit{Slot: 0, At: board.Coord{X: x, Y: 0}})
		require.NoError(t, err)
		_, err = Apply(s, PlaceUnit{Slot: 1, At: board.Coord{X: x, Y: 4}})
		require.NoError(t, err)
	}

	_, err = Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 0, Y: 0}, To: board.Coord{X: 0, Y: 2}})
	require.NoError(t, err)
	_, err = Apply(s, MoveUnit{Slot: 0, From: board.Coord{X: 1, Y: 0}, To: board.Coord{X: 1, Y: 3}})
	require.ErrorIs(t, err, ErrActionTaken)
}
