package engine

import "github.com/Rrrinav/Tanks/internal/board"

// View is what one player is allowed to see of the session: their own board
// in full and the opponent only through the fog-of-war observed board. The
// opponent's true board never appears here.
type View struct {
	RoomID             string              `json:"roomId"`
	Phase              Phase               `json:"phase"`
	TurnOwner          int                 `json:"turnOwner"`
	Winner             int                 `json:"winner"`
	MoveCount          int                 `json:"moveCount"`
	MyBoard            [][]board.CellState `json:"myBoard"`
	ObservedBoard      [][]board.CellState `json:"observedBoard"`
	MyAliveCount       int                 `json:"myAliveCount"`
	OpponentAliveCount int                 `json:"opponentAliveCount"`
	OpponentName       string              `json:"opponentName"`
}

// RenderFor projects the session state into one recipient's view. Pure:
// no mutation, defensive copies of the grids since views cross goroutines.
func RenderFor(s *State, slot int) View {
	v := View{
		RoomID:    s.Code,
		Phase:     s.Phase,
		TurnOwner: s.Turn,
		Winner:    s.Winner,
		MoveCount: s.MoveCount,
	}
	p := s.Players[slot]
	if p == nil {
		return v
	}
	v.MyBoard = copyCells(p.Board.Cells)
	v.ObservedBoard = copyCells(p.Observed.Cells)
	v.MyAliveCount = p.Board.Alive
	if opp := s.Opponent(slot); opp != nil {
		v.OpponentAliveCount = opp.Board.Alive
		v.OpponentName = opp.Name
	}
	return v
}

func copyCells(cells [][]board.CellState) [][]board.CellState {
	out := make([][]board.CellState, len(cells))
	for y, row := range cells {
		out[y] = append([]board.CellState(nil), row...)
	}
	return out
}
