package engine

import "errors"

var (
	// ErrMalformedMove is returned when a move endpoint cannot be parsed
	ErrMalformedMove = errors.New("malformed move")
	// ErrNotYourTurn is returned when a player acts out of turn
	ErrNotYourTurn = errors.New("not your turn")
	// ErrNoDiceOutstanding is returned when moving without unused dice
	ErrNoDiceOutstanding = errors.New("no dice outstanding")
	// ErrIllegalSubMove is returned for a single checker move the rules forbid
	ErrIllegalSubMove = errors.New("illegal move")
	// ErrSuboptimalPlay is returned when a sequence plays fewer dice than
	// possible, or the smaller die when the larger one had to be played
	ErrSuboptimalPlay = errors.New("suboptimal play")
	// ErrGameOver is returned for any action after a winner is known
	ErrGameOver = errors.New("game already over")
	// ErrWrongPhase is returned for a turn transition attempted in the wrong state
	ErrWrongPhase = errors.New("wrong game phase")
	// ErrInvalidPosition is returned for positions that break checker conservation
	ErrInvalidPosition = errors.New("invalid position")
	// ErrInvalidDice is returned for die values outside 1-6 or a tied first roll
	ErrInvalidDice = errors.New("invalid dice")
	// ErrDiceAccounting means the applier could not match a move to an unused die
	ErrDiceAccounting = errors.New("dice accounting mismatch")
)
