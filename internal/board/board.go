package board

import "errors"

var ErrOutOfBounds = errors.New("coordinates out of bounds")
var ErrCellOccupied = errors.New("cell already occupied")
var ErrNoUnitAtSource = errors.New("no unit at source cell")
var ErrDestinationBlocked = errors.New("destination cell blocked")
var ErrAlreadyAttacked = errors.New("cell already attacked")

type CellState int

const (
	Empty CellState = iota
	Occupied
	Hit
	Miss
	Revealed
)

type AttackResult string

const (
	ResultHit             AttackResult = "hit"
	ResultMiss            AttackResult = "miss"
	ResultAlreadyAttacked AttackResult = "already_attacked"
)

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chebyshev returns the Chebyshev (king-move) distance between two cells.
func Chebyshev(a, b Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Board is one player's authoritative grid plus the ordered list of that
// player's live units. Cells[y][x] addressing.
type Board struct {
	Size  int
	Cells [][]CellState
	Units []Coord
	Alive int
}

func New(size int) *Board {
	cells := make([][]CellState, size)
	for y := range cells {
		cells[y] = make([]CellState, size)
	}
	return &Board{Size: size, Cells: cells}
}

func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.Size && c.Y >= 0 && c.Y < b.Size
}

func (b *Board) At(c Coord) CellState {
	return b.Cells[c.Y][c.X]
}

// Place marks a cell occupied and records the unit.
func (b *Board) Place(c Coord) error {
	if !b.InBounds(c) {
		return ErrOutOfBounds
	}
	if b.At(c) != Empty {
		return ErrCellOccupied
	}
	b.Cells[c.Y][c.X] = Occupied
	b.Units = append(b.Units, c)
	b.Alive++
	return nil
}

// Move relocates a unit. Range legality is the caller's concern; the board
// only checks that the source holds a unit and the destination is free.
func (b *Board) Move(from, to Coord) error {
	if !b.InBounds(from) || !b.InBounds(to) {
		return ErrOutOfBounds
	}
	if b.At(from) != Occupied {
		return ErrNoUnitAtSource
	}
	if b.At(to) != Empty {
		return ErrDestinationBlocked
	}
	b.Cells[from.Y][from.X] = Empty
	b.Cells[to.Y][to.X] = Occupied
	for i, u := range b.Units {
		if u == from {
			b.Units[i] = to
			break
		}
	}
	return nil
}

// Attack resolves a shot from the owner of `observed` against `defender`.
// The observed board is only consulted for the already-attacked check, never
// mutated here; callers follow up with Reveal on hit/miss.
func Attack(observed, defender *Board, c Coord) (AttackResult, error) {
	if !defender.InBounds(c) {
		return "", ErrOutOfBounds
	}
	if s := observed.At(c); s == Hit || s == Miss {
		return ResultAlreadyAttacked, ErrAlreadyAttacked
	}
	switch defender.At(c) {
	case Occupied:
		defender.Cells[c.Y][c.X] = Hit
		defender.removeUnit(c)
		return ResultHit, nil
	case Empty:
		defender.Cells[c.Y][c.X] = Miss
		return ResultMiss, nil
	default:
		// Only reachable if observed and defender disagree; fail closed.
		return ResultAlreadyAttacked, ErrAlreadyAttacked
	}
}

func (b *Board) removeUnit(c Coord) {
	for i, u := range b.Units {
		if u == c {
			b.Units = append(b.Units[:i], b.Units[i+1:]...)
			b.Alive--
			return
		}
	}
}

// Reveal copies the defender's true state into the attacker's observed board
// for every in-bounds cell within Chebyshev distance radius of center. Cells
// with nothing informative to show become Revealed, so observed cells only
// ever move toward more-informative states.
func Reveal(observed, defender *Board, center Coord, radius int) {
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			c := Coord{X: x, Y: y}
			if !defender.InBounds(c) {
				continue
			}
			switch s := defender.At(c); s {
			case Occupied, Hit, Miss:
				observed.Cells[y][x] = s
			default:
				observed.Cells[y][x] = Revealed
			}
		}
	}
}
