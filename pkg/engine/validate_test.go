package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/matryer/is"
)

func mustParse(t *testing.T, s string) Sequence {
	t.Helper()
	seq, err := ParseSequence(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return seq
}

func validate(t *testing.T, pos Position, player Player, d1, d2 int, moves string) (Sequence, error) {
	t.Helper()
	r, err := NewRoll(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	return ValidateSequence(pos, player, r, r.Dice(), mustParse(t, moves))
}

func TestValidateForcedLargerDie(t *testing.T) {
	is := is.New(t)
	pos := buildPosition(t, [2]uint8{},
		place{8, PlayerX, 1},
		place{0, PlayerO, 2}, place{4, PlayerO, 2},
	)

	_, err := validate(t, pos, PlayerX, 6, 2, "8/6")
	is.True(errors.Is(err, ErrSuboptimalPlay))

	seq, err := validate(t, pos, PlayerX, 6, 2, "8/2")
	is.NoErr(err)
	is.Equal(seq.Dice(), []int{6})

	r, _ := NewRoll(6, 2)
	playable := PlayableSequences(pos, PlayerX, r, r.Dice())
	is.Equal(len(playable), 1)
	is.Equal(playable[0].Key(), "8/2")
	is.Equal(GenerateMoves(pos, PlayerX, r.Dice()).Len(), 2)
}

func TestValidateSmallerDieWhenLargerIsBlocked(t *testing.T) {
	is := is.New(t)
	pos := buildPosition(t, [2]uint8{},
		place{8, PlayerX, 1},
		place{0, PlayerO, 2}, place{2, PlayerO, 2}, place{4, PlayerO, 2},
	)
	// 8/2 is blocked, so the 2 is the only play
	_, err := validate(t, pos, PlayerX, 6, 2, "8/6")
	is.NoErr(err)
}

func TestValidateBearOffOvershoot(t *testing.T) {
	is := is.New(t)
	alone := buildPosition(t, [2]uint8{},
		place{2, PlayerX, 1}, place{20, PlayerO, 2},
	)
	seq, err := validate(t, alone, PlayerX, 6, 5, "2/off")
	is.NoErr(err)
	is.Equal(len(seq), 1)

	withBack := buildPosition(t, [2]uint8{},
		place{2, PlayerX, 1}, place{4, PlayerX, 1}, place{20, PlayerO, 2},
	)
	_, err = validate(t, withBack, PlayerX, 6, 5, "2/off 4/off")
	is.True(errors.Is(err, ErrIllegalSubMove))

	seq, err = validate(t, withBack, PlayerX, 6, 5, "4/off 2/off")
	is.NoErr(err)
	is.Equal(seq.Dice(), []int{5, 6})
}

func TestValidateBearOffExactDiePreferred(t *testing.T) {
	is := is.New(t)
	pos := buildPosition(t, [2]uint8{},
		place{21, PlayerO, 1}, place{23, PlayerO, 1},
		place{3, PlayerX, 2},
	)
	seq, err := validate(t, pos, PlayerO, 3, 1, "21/off 23/off")
	is.NoErr(err)
	is.Equal(seq.Dice(), []int{3, 1})

	seq, err = validate(t, pos, PlayerO, 3, 1, "23/off 21/off")
	is.NoErr(err)
	is.Equal(seq.Dice(), []int{1, 3})
}

func TestValidateHitAndBlock(t *testing.T) {
	is := is.New(t)
	pos := buildPosition(t, [2]uint8{},
		place{12, PlayerX, 2},
		place{9, PlayerO, 1}, place{7, PlayerO, 2},
	)
	_, err := validate(t, pos, PlayerX, 5, 3, "12/7 12/9")
	is.True(errors.Is(err, ErrIllegalSubMove)) // 7 is made

	seq, err := validate(t, pos, PlayerX, 3, 1, "12/9 9/8")
	is.NoErr(err)
	is.Equal(seq.Dice(), []int{3, 1})
}

func TestValidateBarPriority(t *testing.T) {
	is := is.New(t)
	pos := buildPosition(t, [2]uint8{0, 1},
		place{0, PlayerO, 1}, place{10, PlayerX, 15},
	)
	_, err := validate(t, pos, PlayerO, 4, 2, "0/4 bar/1")
	is.True(errors.Is(err, ErrIllegalSubMove))

	_, err = validate(t, pos, PlayerO, 4, 2, "bar/3 0/4")
	is.True(errors.Is(err, ErrIllegalSubMove)) // 0/4 needs the 4, the 2 is left

	_, err = validate(t, pos, PlayerO, 4, 2, "bar/3 3/5")
	is.NoErr(err)
}

func TestValidatePass(t *testing.T) {
	is := is.New(t)
	_, err := validate(t, StartingPosition(), PlayerX, 2, 1, "")
	is.True(errors.Is(err, ErrSuboptimalPlay))

	places := []place{{5, PlayerX, 14}}
	for pip := 18; pip < 24; pip++ {
		places = append(places, place{pip, PlayerO, 2})
	}
	closed := buildPosition(t, [2]uint8{1, 0}, places...)
	seq, err := validate(t, closed, PlayerX, 5, 3, "")
	is.NoErr(err)
	is.Equal(len(seq), 0)
}

func TestValidateTooFewDice(t *testing.T) {
	is := is.New(t)
	_, err := validate(t, StartingPosition(), PlayerO, 4, 4, "0/4 0/4 11/15")
	is.True(errors.Is(err, ErrSuboptimalPlay))
}

// Every sequence the validator accepts is one the generator found, and every
// playable generated sequence is accepted.
func TestValidatorAgreesWithGenerator(t *testing.T) {
	is := is.New(t)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 60; i++ {
		pos, player := randomWalk(rng, rng.Intn(80))
		if pos.OffCount(PlayerX) == NumCheckers || pos.OffCount(PlayerO) == NumCheckers {
			continue
		}
		r, _ := NewRoll(rng.Intn(6)+1, rng.Intn(6)+1)
		dice := r.Dice()
		ml := GenerateMoves(pos, player, dice)

		for _, seq := range PlayableSequences(pos, player, r, dice) {
			_, err := ValidateSequence(pos, player, r, dice, seq)
			is.NoErr(err)
		}

		if r.IsDouble() {
			continue
		}
		for _, cand := range twoMoveCandidates(pos, player, dice) {
			if _, err := ValidateSequence(pos, player, r, dice, cand); err == nil {
				is.True(ml.Contains(cand))
			}
		}
	}
}

// twoMoveCandidates lists every pair of single moves that could be typed in,
// legal or not, starting from checkers the player has.
func twoMoveCandidates(pos Position, player Player, dice []int) []Sequence {
	var singles []SubMove
	for _, from := range append([]Endpoint{Bar}, points()...) {
		if from.IsBar() && pos.BarCount(player) == 0 || from.IsPoint() && !pos.Owns(player, from.Pip) {
			continue
		}
		for _, d := range dice {
			var to Endpoint
			switch {
			case from.IsBar():
				to = At(entryPip(player, d))
			default:
				p := target(player, from.Pip, d)
				if p < 0 || p >= NumPoints {
					to = Off
				} else {
					to = At(p)
				}
			}
			singles = append(singles, Move(from, to))
		}
	}
	var out []Sequence
	for _, a := range singles {
		out = append(out, Sequence{a})
		for _, b := range singles {
			out = append(out, Sequence{a, b})
		}
	}
	return out
}

func points() []Endpoint {
	out := make([]Endpoint, NumPoints)
	for i := range out {
		out[i] = At(i)
	}
	return out
}
