package engine

import (
	"slices"

	"github.com/samber/lo"
)

// MoveList is the result of move generation: every legal sequence of maximal
// length, deduplicated by their (from, to) pairs.
type MoveList struct {
	Sequences []Sequence
	MaxLength int

	seen map[string]struct{}
}

// Len returns the number of distinct sequences.
func (ml *MoveList) Len() int {
	return len(ml.Sequences)
}

// Contains reports whether seq moves the same checkers as one of the
// sequences in the list.
func (ml *MoveList) Contains(seq Sequence) bool {
	if ml.seen != nil {
		_, ok := ml.seen[seq.Key()]
		return ok
	}
	return lo.ContainsBy(ml.Sequences, seq.SameMoves)
}

// save records a completed path, discarding anything shorter than the
// longest path seen so far.
func (ml *MoveList) save(path Sequence) {
	if len(path) < ml.MaxLength {
		return
	}
	if len(path) > ml.MaxLength {
		ml.MaxLength = len(path)
		ml.Sequences = ml.Sequences[:0]
		clear(ml.seen)
	}
	key := path.Key()
	if _, dup := ml.seen[key]; dup {
		return
	}
	ml.seen[key] = struct{}{}
	ml.Sequences = append(ml.Sequences, slices.Clone(path))
}

// GenerateMoves returns every maximal-length legal sequence player can play
// from pos with the given dice. pos is not modified. An empty result means
// the player has to pass.
func GenerateMoves(pos Position, player Player, dice []int) *MoveList {
	ml := &MoveList{seen: make(map[string]struct{})}
	if len(dice) == 0 || !player.Valid() {
		return ml
	}
	generate(pos, player, dice, nil, ml)
	if ml.MaxLength == 0 {
		ml.Sequences = nil
	}
	return ml
}

// LegalSequences is GenerateMoves for a fresh roll.
func LegalSequences(pos Position, player Player, roll Roll) []Sequence {
	return GenerateMoves(pos, player, roll.Dice()).Sequences
}

// generate extends path by every playable single move, recursing on a copy of
// the position with the consumed die removed.
func generate(pos Position, player Player, dice []int, path Sequence, ml *MoveList) {
	moves := singleMoves(&pos, player, dice)
	if len(moves) == 0 {
		ml.save(path)
		return
	}
	for _, m := range moves {
		next := pos
		next.applySubMove(player, m)
		generate(next, player, removeDie(dice, m.Die), append(path[:len(path):len(path)], m), ml)
	}
}

// singleMoves lists the legal one-checker moves for the distinct die values in
// dice, larger dice first.
func singleMoves(pos *Position, player Player, dice []int) []SubMove {
	values := lo.Uniq(dice)
	slices.Sort(values)
	slices.Reverse(values)

	var moves []SubMove
	if pos.BarCount(player) > 0 {
		for _, d := range values {
			to := entryPip(player, d)
			if !pos.Blocked(player, to) {
				moves = append(moves, SubMove{From: Bar, To: At(to), Die: d})
			}
		}
		return moves
	}

	bearing := pos.AllHome(player)
	for pip := 0; pip < NumPoints; pip++ {
		if !pos.Owns(player, pip) {
			continue
		}
		for _, d := range values {
			to := target(player, pip, d)
			if to >= 0 && to < NumPoints {
				if !pos.Blocked(player, to) {
					moves = append(moves, SubMove{From: At(pip), To: At(to), Die: d})
				}
				continue
			}
			if bearing && canBearOff(pos, player, pip, d) {
				moves = append(moves, SubMove{From: At(pip), To: Off, Die: d})
			}
		}
	}
	return moves
}

// canBearOff reports whether die bears a checker off from pip. The caller
// has already checked that every checker is home.
func canBearOff(pos *Position, player Player, pip, die int) bool {
	dist := offDistance(player, pip)
	return die == dist || (die > dist && pos.FurthestBack(player, pip))
}

// removeDie returns a copy of dice without one instance of die.
func removeDie(dice []int, die int) []int {
	i := slices.Index(dice, die)
	if i < 0 {
		return slices.Clone(dice)
	}
	out := make([]int, 0, len(dice)-1)
	out = append(out, dice[:i]...)
	return append(out, dice[i+1:]...)
}
