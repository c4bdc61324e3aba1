package policy

import "github.com/yourusername/gammon/pkg/engine"

// Class is the broad kind of a position. The heuristic weighs features
// differently once the two armies have passed each other.
type Class int

const (
	ClassOver    Class = iota // one side has borne off every checker
	ClassBearoff              // both sides bearing off
	ClassRace                 // no contact left
	ClassContact
)

func (c Class) String() string {
	switch c {
	case ClassOver:
		return "over"
	case ClassBearoff:
		return "bearoff"
	case ClassRace:
		return "race"
	}
	return "contact"
}

// depth is the distance of pip from p's bearing-off edge, 0 for p's ace
// point. The bar is depth 24.
func depth(p engine.Player, pip int) int {
	if p == engine.PlayerX {
		return pip
	}
	return engine.NumPoints - 1 - pip
}

// backChecker returns the depth of p's rearmost checker, or -1 when p has
// nothing left on the board.
func backChecker(pos engine.Position, p engine.Player) int {
	if pos.BarCount(p) > 0 {
		return engine.NumPoints
	}
	back := -1
	for pip := 0; pip < engine.NumPoints; pip++ {
		if pos.Owns(p, pip) {
			back = max(back, depth(p, pip))
		}
	}
	return back
}

// Classify returns the class of pos.
func Classify(pos engine.Position) Class {
	x := backChecker(pos, engine.PlayerX)
	o := backChecker(pos, engine.PlayerO)
	if x < 0 || o < 0 {
		return ClassOver
	}
	// Depths are measured from opposite edges, so the rear checkers have
	// passed each other once they sum to less than 23.
	if x+o > engine.NumPoints-2 {
		return ClassContact
	}
	if x < engine.HomeSize && o < engine.HomeSize {
		return ClassBearoff
	}
	return ClassRace
}

// escapeTable[mask] counts the rolls (out of 36) that carry a checker the
// full distance of both dice when bit i of mask marks the point i+1 pips
// ahead as blocked.
var escapeTable = func() (t [1 << 12]int) {
	for mask := range t {
		blocked := func(i int) bool { return mask&(1<<i) != 0 }
		for a := 0; a < 6; a++ {
			for b := 0; b <= a; b++ {
				if blocked(a+b+1) || (blocked(a) && blocked(b)) {
					continue
				}
				if a == b {
					t[mask]++
				} else {
					t[mask] += 2
				}
			}
		}
	}
	return t
}()

// Escapes counts the rolls that move p's checker on pip (engine.NumPoints
// for the bar) past the points ahead of it without landing on a block.
func Escapes(pos engine.Position, p engine.Player, pip int) int {
	d := engine.NumPoints
	if pip < engine.NumPoints {
		d = depth(p, pip)
	}
	mask := 0
	for i := 0; i < 12 && d-1-i >= 0; i++ {
		ahead := d - 1 - i
		if p == engine.PlayerO {
			ahead = engine.NumPoints - 1 - ahead
		}
		if pos.Blocked(p, ahead) {
			mask |= 1 << i
		}
	}
	return escapeTable[mask]
}

// backEscapes is Escapes for p's rearmost checker, 36 when p has none.
func backEscapes(pos engine.Position, p engine.Player) int {
	d := backChecker(pos, p)
	switch {
	case d < 0:
		return 36
	case d == engine.NumPoints:
		return Escapes(pos, p, engine.NumPoints)
	case p == engine.PlayerX:
		return Escapes(pos, p, d)
	}
	return Escapes(pos, p, engine.NumPoints-1-d)
}
