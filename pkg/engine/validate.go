package engine

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// deduceDie works out which die in avail a sub-move consumes, checking the
// move against pos on the way. It does not modify pos.
func deduceDie(pos *Position, player Player, m SubMove, avail []int) (int, error) {
	for _, e := range []Endpoint{m.From, m.To} {
		if e.IsPoint() && (e.Pip < 0 || e.Pip >= NumPoints) {
			return 0, fmt.Errorf("%w: point %d out of range", ErrMalformedMove, e.Pip)
		}
		if e.Kind > KindOff {
			return 0, fmt.Errorf("%w: unknown endpoint kind %d", ErrMalformedMove, e.Kind)
		}
	}
	if m.From.IsOff() || m.To.IsBar() {
		return 0, fmt.Errorf("%w: %s", ErrIllegalSubMove, m)
	}
	if pos.BarCount(player) > 0 && !m.From.IsBar() {
		return 0, fmt.Errorf("%w: %s must enter from the bar first", ErrIllegalSubMove, m)
	}

	var die int
	switch {
	case m.From.IsBar():
		if pos.BarCount(player) == 0 {
			return 0, fmt.Errorf("%w: %s with nothing on the bar", ErrIllegalSubMove, m)
		}
		if m.To.IsOff() {
			return 0, fmt.Errorf("%w: %s", ErrIllegalSubMove, m)
		}
		d, ok := entryDie(player, m.To.Pip)
		if !ok {
			return 0, fmt.Errorf("%w: %s does not enter the home board of the opponent", ErrIllegalSubMove, m)
		}
		die = d

	case m.To.IsOff():
		if !pos.Owns(player, m.From.Pip) {
			return 0, fmt.Errorf("%w: no %s checker on %d", ErrIllegalSubMove, player, m.From.Pip)
		}
		if !pos.AllHome(player) {
			return 0, fmt.Errorf("%w: %s cannot bear off before all checkers are home", ErrIllegalSubMove, m)
		}
		d, err := bearOffDie(pos, player, m.From.Pip, avail)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrIllegalSubMove, m, err)
		}
		return d, nil

	default:
		if !pos.Owns(player, m.From.Pip) {
			return 0, fmt.Errorf("%w: no %s checker on %d", ErrIllegalSubMove, player, m.From.Pip)
		}
		d := m.From.Pip - m.To.Pip
		if player == PlayerO {
			d = -d
		}
		if !validDie(d) {
			return 0, fmt.Errorf("%w: %s moves %d pips", ErrIllegalSubMove, m, d)
		}
		die = d
	}

	if !slices.Contains(avail, die) {
		return 0, fmt.Errorf("%w: %s needs a %d, have %v", ErrIllegalSubMove, m, die, avail)
	}
	if pos.Blocked(player, m.To.Pip) {
		return 0, fmt.Errorf("%w: %s lands on a made point", ErrIllegalSubMove, m)
	}
	return die, nil
}

// bearOffDie picks the die that bears a checker off from pip: the exact
// distance if available, otherwise the smallest larger die, which is only
// allowed from the furthest-back checker.
func bearOffDie(pos *Position, player Player, pip int, avail []int) (int, error) {
	dist := offDistance(player, pip)
	if slices.Contains(avail, dist) {
		return dist, nil
	}
	if !pos.FurthestBack(player, pip) {
		return 0, fmt.Errorf("needs a %d", dist)
	}
	best := 0
	for _, d := range avail {
		if d > dist && (best == 0 || d < best) {
			best = d
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("no die of at least %d", dist)
	}
	return best, nil
}

// ValidateSequence checks seq as player's play from pos with the dice in
// avail. roll is the full roll of the turn. On success it returns seq with
// the consumed die of each sub-move filled in.
func ValidateSequence(pos Position, player Player, roll Roll, avail []int, seq Sequence) (Sequence, error) {
	if len(seq) == 0 {
		if n := GenerateMoves(pos, player, avail).Len(); n > 0 {
			return nil, fmt.Errorf("%w: cannot pass, %d plays available", ErrSuboptimalPlay, n)
		}
		return Sequence{}, nil
	}

	sim := pos
	remaining := slices.Clone(avail)
	tagged := make(Sequence, 0, len(seq))
	for _, m := range seq {
		die, err := deduceDie(&sim, player, m, remaining)
		if err != nil {
			log.Debug().Str("player", player.String()).Str("move", m.String()).Err(err).Msg("sub-move rejected")
			return nil, err
		}
		m.Die = die
		sim.applySubMove(player, m)
		remaining = removeDie(remaining, die)
		tagged = append(tagged, m)
	}

	legal := GenerateMoves(pos, player, avail)
	if len(tagged) != legal.MaxLength {
		return nil, fmt.Errorf("%w: played %d dice, %d possible", ErrSuboptimalPlay, len(tagged), legal.MaxLength)
	}

	if skipsLargerDie(pos, player, roll, avail, legal.MaxLength, tagged) {
		return nil, fmt.Errorf("%w: the %d must be played", ErrSuboptimalPlay, roll.High())
	}
	return tagged, nil
}

// skipsLargerDie reports whether seq plays only the smaller die of a
// non-double roll although the larger die could be played alone. A single
// move that the larger die can also make, such as an overshooting bear-off,
// counts as playing the larger die.
func skipsLargerDie(pos Position, player Player, roll Roll, avail []int, maxLen int, seq Sequence) bool {
	if roll.IsDouble() || len(avail) != 2 || maxLen != 1 || len(seq) != 1 || seq[0].Die != roll.Low() {
		return false
	}
	larger := GenerateMoves(pos, player, []int{roll.High()})
	return larger.Len() > 0 && !larger.Contains(seq)
}

// PlayableSequences is GenerateMoves without the plays the validator
// rejects for leaving the larger die unplayed. Every sequence it returns is
// accepted by ValidateSequence.
func PlayableSequences(pos Position, player Player, roll Roll, avail []int) []Sequence {
	ml := GenerateMoves(pos, player, avail)
	if roll.IsDouble() || len(avail) != 2 || ml.MaxLength != 1 {
		return ml.Sequences
	}
	return lo.Reject(ml.Sequences, func(seq Sequence, _ int) bool {
		return skipsLargerDie(pos, player, roll, avail, ml.MaxLength, seq)
	})
}
