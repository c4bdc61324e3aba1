package engine

import (
	"fmt"

	"github.com/yourusername/gammon/internal/positionid"
)

// View is a read-only projection of a game for rendering and serialization.
// It shares no memory with the game it was taken from.
type View struct {
	Position      Position `json:"position"`
	PositionID    string   `json:"position_id"`
	Phase         Phase    `json:"phase"`
	Player        Player   `json:"player,omitempty"`
	Roll          []int    `json:"roll,omitempty"`
	Remaining     []int    `json:"remaining,omitempty"`
	DoublesPlayed int      `json:"doubles_played"`
	Winner        Player   `json:"winner,omitempty"`
	PipCount      [2]int   `json:"pip_count"`
	Plies         int      `json:"plies"`
}

// Snapshot returns a view of the game at this instant.
func (g *Game) Snapshot() View {
	pos := g.position
	v := View{
		Position:      pos,
		PositionID:    pos.ID(g.current),
		Phase:         g.phase,
		Player:        g.current,
		Remaining:     g.dice.Remaining(),
		DoublesPlayed: g.dice.DoublesPlayed(),
		Winner:        g.winner,
		PipCount:      [2]int{pos.PipCount(PlayerX), pos.PipCount(PlayerO)},
		Plies:         g.plies,
	}
	if g.dice.Rolled() {
		v.Roll = []int{g.dice.Roll[0], g.dice.Roll[1]}
	}
	return v
}

// PositionFromView rebuilds the position a view was taken from.
func PositionFromView(v View) (Position, error) {
	pos := v.Position
	if err := pos.Check(); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Board converts pos to a position ID board seen by onRoll. NoPlayer is
// treated as X.
func (pos Position) Board(onRoll Player) positionid.Board {
	var b positionid.Board
	for pip, pt := range pos.Points {
		if pt.Count == 0 {
			continue
		}
		b[boardSide(pt.Owner)][boardSlot(pt.Owner, pip)] = pt.Count
	}
	for _, p := range Players {
		b[boardSide(p)][positionid.BarSlot] = pos.Bar[p.side()]
	}
	if onRoll == PlayerO {
		b = positionid.SwapSides(b)
	}
	return b
}

// ID returns the GNU Backgammon position ID of pos seen by onRoll.
func (pos Position) ID(onRoll Player) string {
	return positionid.PositionID(pos.Board(onRoll))
}

// PositionFromBoard is the inverse of Position.Board.
func PositionFromBoard(b positionid.Board, onRoll Player) (Position, error) {
	if err := positionid.CheckBoard(b); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	if onRoll == PlayerO {
		b = positionid.SwapSides(b)
	}
	var pos Position
	for _, p := range Players {
		side := boardSide(p)
		for slot := 0; slot < positionid.BarSlot; slot++ {
			n := b[side][slot]
			if n == 0 {
				continue
			}
			pip := boardSlot(p, slot)
			pos.Points[pip] = Point{Owner: p, Count: n}
		}
		pos.Bar[p.side()] = b[side][positionid.BarSlot]
		pos.BorneOff[p.side()] = uint8(positionid.OffCount(b, side))
	}
	return pos, pos.Check()
}

// PositionFromID decodes a position ID seen by onRoll.
func PositionFromID(id string, onRoll Player) (Position, error) {
	b, err := positionid.BoardFromPositionID(id)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return PositionFromBoard(b, onRoll)
}

// boardSide is the side of p on a board seen by X: 1 for X, 0 for O.
func boardSide(p Player) int {
	if p == PlayerX {
		return 1
	}
	return 0
}

// boardSlot maps a pip to a slot counted from p's own home and back. The
// mapping is its own inverse.
func boardSlot(p Player, pip int) int {
	if p == PlayerX {
		return pip
	}
	return NumPoints - 1 - pip
}
