// Package engine implements the rules of backgammon: the authoritative
// position, legal move generation for a roll, validation of submitted move
// sequences and their application, and the turn state machine that drives a
// single game.
//
// Points are indexed 0-23. Player X moves from high indices toward 0 and bears
// off below 0; player O moves from low indices toward 23 and bears off above
// 23. X's home board is points 0-5, O's is 18-23.
package engine

import (
	"fmt"
)

const (
	// NumPoints is the number of points on the board
	NumPoints = 24
	// NumCheckers is the number of checkers each player owns
	NumCheckers = 15
	// HomeSize is the number of points in a home board
	HomeSize = 6
)

// Player identifies a side. The zero value means "nobody".
type Player int8

const (
	NoPlayer Player = iota
	PlayerX
	PlayerO
)

// Players lists both sides in seating order.
var Players = [2]Player{PlayerX, PlayerO}

// Opponent returns the other side.
func (p Player) Opponent() Player {
	switch p {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	}
	return NoPlayer
}

// Valid reports whether p is X or O.
func (p Player) Valid() bool {
	return p == PlayerX || p == PlayerO
}

// side is the index of p in per-player arrays.
func (p Player) side() int {
	return int(p) - 1
}

func (p Player) String() string {
	switch p {
	case PlayerX:
		return "X"
	case PlayerO:
		return "O"
	}
	return "-"
}

// MarshalText encodes the player as "X", "O" or "".
func (p Player) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts "X", "O" (either case) or "".
func (p *Player) UnmarshalText(b []byte) error {
	v, err := ParsePlayer(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePlayer parses "X", "O", "x", "o", "0", "1" or "" (no player).
func ParsePlayer(s string) (Player, error) {
	switch s {
	case "X", "x", "0":
		return PlayerX, nil
	case "O", "o", "1":
		return PlayerO, nil
	case "", "-":
		return NoPlayer, nil
	}
	return NoPlayer, fmt.Errorf("unknown player %q", s)
}

// Point is one of the 24 points. Owner is NoPlayer exactly when Count is 0.
type Point struct {
	Owner Player `json:"owner,omitempty"`
	Count uint8  `json:"count"`
}

// Position is the full board state. It is a plain value: copying it yields an
// independent position, which is how move search simulates hypothetical plays.
type Position struct {
	Points   [NumPoints]Point `json:"points"`
	Bar      [2]uint8         `json:"bar"`
	BorneOff [2]uint8         `json:"borne_off"`
}

// StartingPosition returns the standard backgammon starting position.
func StartingPosition() Position {
	var pos Position
	pos.Points[0] = Point{Owner: PlayerO, Count: 2}
	pos.Points[11] = Point{Owner: PlayerO, Count: 5}
	pos.Points[16] = Point{Owner: PlayerO, Count: 3}
	pos.Points[18] = Point{Owner: PlayerO, Count: 5}

	pos.Points[5] = Point{Owner: PlayerX, Count: 5}
	pos.Points[7] = Point{Owner: PlayerX, Count: 3}
	pos.Points[12] = Point{Owner: PlayerX, Count: 5}
	pos.Points[23] = Point{Owner: PlayerX, Count: 2}
	return pos
}

// BarCount returns the number of p's checkers on the bar.
func (pos Position) BarCount(p Player) int {
	return int(pos.Bar[p.side()])
}

// OffCount returns the number of p's checkers borne off.
func (pos Position) OffCount(p Player) int {
	return int(pos.BorneOff[p.side()])
}

// Owns reports whether p has at least one checker on pip.
func (pos Position) Owns(p Player, pip int) bool {
	pt := pos.Points[pip]
	return pt.Owner == p && pt.Count > 0
}

// Blocked reports whether pip is a made point of p's opponent.
func (pos Position) Blocked(p Player, pip int) bool {
	pt := pos.Points[pip]
	return pt.Owner == p.Opponent() && pt.Count > 1
}

// HomeRange returns the half-open range of p's home board.
func HomeRange(p Player) (lo, hi int) {
	if p == PlayerX {
		return 0, HomeSize
	}
	return NumPoints - HomeSize, NumPoints
}

// InHome reports whether pip lies in p's home board.
func InHome(p Player, pip int) bool {
	lo, hi := HomeRange(p)
	return pip >= lo && pip < hi
}

// AllHome reports whether p may bear off: nothing on the bar and every
// checker on the board inside the home board.
func (pos Position) AllHome(p Player) bool {
	if pos.BarCount(p) > 0 {
		return false
	}
	for pip := 0; pip < NumPoints; pip++ {
		if pos.Owns(p, pip) && !InHome(p, pip) {
			return false
		}
	}
	return true
}

// FurthestBack reports whether no checker of p sits farther from home than pip
// inside the home board.
func (pos Position) FurthestBack(p Player, pip int) bool {
	if p == PlayerX {
		for i := pip + 1; i < HomeSize; i++ {
			if pos.Owns(p, i) {
				return false
			}
		}
		return true
	}
	for i := pip - 1; i >= NumPoints-HomeSize; i-- {
		if pos.Owns(p, i) {
			return false
		}
	}
	return true
}

// target returns the pip reached by moving die pips from pip. The result may
// be off the board.
func target(p Player, pip, die int) int {
	if p == PlayerX {
		return pip - die
	}
	return pip + die
}

// entryPip is where a checker on the bar enters with die.
func entryPip(p Player, die int) int {
	if p == PlayerX {
		return NumPoints - die
	}
	return die - 1
}

// entryDie is the inverse of entryPip. ok is false if pip is not an entry point.
func entryDie(p Player, pip int) (die int, ok bool) {
	if p == PlayerX {
		die = NumPoints - pip
	} else {
		die = pip + 1
	}
	return die, die >= 1 && die <= DieFaces
}

// offDistance is the exact number of pips needed to bear off from pip.
func offDistance(p Player, pip int) int {
	if p == PlayerX {
		return pip + 1
	}
	return NumPoints - pip
}

// applySubMove moves one checker and reports whether it hit a blot. It does
// no legality checking.
func (pos *Position) applySubMove(p Player, m SubMove) (hit bool) {
	if m.From.IsBar() {
		pos.Bar[p.side()]--
	} else {
		src := &pos.Points[m.From.Pip]
		src.Count--
		if src.Count == 0 {
			src.Owner = NoPlayer
		}
	}

	if m.To.IsOff() {
		pos.BorneOff[p.side()]++
		return false
	}

	dst := &pos.Points[m.To.Pip]
	opp := p.Opponent()
	if dst.Owner == opp && dst.Count == 1 {
		dst.Owner = p
		dst.Count = 1
		pos.Bar[opp.side()]++
		return true
	}
	dst.Owner = p
	dst.Count++
	return false
}

// After returns the position reached when p plays seq. seq is assumed to be
// legal, as the sequences from GenerateMoves are.
func (pos Position) After(p Player, seq Sequence) Position {
	for _, m := range seq {
		pos.applySubMove(p, m)
	}
	return pos
}

// CheckerCount totals p's checkers on the board, on the bar and borne off.
func (pos Position) CheckerCount(p Player) int {
	n := pos.BarCount(p) + pos.OffCount(p)
	for _, pt := range pos.Points {
		if pt.Owner == p {
			n += int(pt.Count)
		}
	}
	return n
}

// PipCount is the total number of pips p needs to bear everything off.
func (pos Position) PipCount(p Player) int {
	n := 25 * pos.BarCount(p)
	for pip, pt := range pos.Points {
		if pt.Owner == p {
			n += int(pt.Count) * offDistance(p, pip)
		}
	}
	return n
}

// Check verifies the position invariants: point ownership matches counts and
// each player has exactly 15 checkers.
func (pos Position) Check() error {
	for pip, pt := range pos.Points {
		if pt.Count == 0 && pt.Owner != NoPlayer {
			return fmt.Errorf("%w: empty point %d owned by %s", ErrInvalidPosition, pip, pt.Owner)
		}
		if pt.Count > 0 && !pt.Owner.Valid() {
			return fmt.Errorf("%w: point %d has %d checkers and no owner", ErrInvalidPosition, pip, pt.Count)
		}
	}
	for _, p := range Players {
		if n := pos.CheckerCount(p); n != NumCheckers {
			return fmt.Errorf("%w: player %s has %d checkers", ErrInvalidPosition, p, n)
		}
	}
	return nil
}
