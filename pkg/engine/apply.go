package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// applySequence plays an already validated sequence onto pos, consuming dice
// from usage. It returns the number of blots hit. On error pos and usage are
// left partially updated; callers apply to copies.
func applySequence(pos *Position, usage DiceUsage, player Player, seq Sequence) (int, error) {
	hits := 0
	for _, m := range seq {
		die, err := deduceDie(pos, player, m, usage.Remaining())
		if err != nil {
			return hits, fmt.Errorf("%w: %s: %v", ErrDiceAccounting, m, err)
		}
		if err := usage.Use(die); err != nil {
			return hits, err
		}
		m.Die = die
		if pos.applySubMove(player, m) {
			hits++
		}
	}
	return hits, nil
}

// canContinue reports whether player still has dice and a move to use them on.
func canContinue(pos Position, player Player, usage DiceUsage) bool {
	if usage.Done() {
		return false
	}
	return GenerateMoves(pos, player, usage.Remaining()).Len() > 0
}

// TurnOutcome describes the effect of an applied sequence.
type TurnOutcome struct {
	Player Player   `json:"player"`
	Played Sequence `json:"played"`
	Hits   int      `json:"hits"`
	// DoublesPlayed counts the plays of a double used so far this turn.
	DoublesPlayed int `json:"doubles_played,omitempty"`
	// Continues is true when Player keeps the turn with dice still to play.
	Continues bool `json:"continues"`
	// Next is the player to act next, NoPlayer once the game is over.
	Next   Player `json:"next,omitempty"`
	Winner Player `json:"winner,omitempty"`
}

// GameOver reports whether the sequence won the game.
func (o *TurnOutcome) GameOver() bool {
	return o.Winner != NoPlayer
}

// Apply validates seq for player and, if it is legal, plays it. An empty
// sequence is a pass and is only accepted when no move exists. The game is
// never modified when an error is returned.
func (g *Game) Apply(player Player, seq Sequence) (*TurnOutcome, error) {
	tagged, err := g.validate(player, seq)
	if err != nil {
		return nil, err
	}

	pos := g.position
	usage := g.dice.Usage.clone()
	hits, err := applySequence(&pos, usage, player, tagged)
	if err == nil {
		err = pos.Check()
	}
	if err != nil {
		log.Error().Err(err).
			Str("player", player.String()).
			Str("sequence", tagged.String()).
			Msg("applying a validated sequence failed")
		return nil, err
	}

	g.position = pos
	g.dice.Usage = usage
	g.plies++

	out := &TurnOutcome{Player: player, Played: tagged, Hits: hits}
	if u, ok := usage.(*DoubleUsage); ok {
		out.DoublesPlayed = u.Played()
	}
	if pos.OffCount(player) == NumCheckers {
		g.winner = player
		g.phase = PhaseGameOver
		out.Winner = player
		log.Info().Str("winner", player.String()).Int("plies", g.plies).Msg("game over")
		return out, nil
	}

	if canContinue(pos, player, usage) {
		out.Continues = true
		out.Next = player
		return out, nil
	}

	g.switchPlayer()
	out.Next = g.current
	return out, nil
}
