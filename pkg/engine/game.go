package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Phase is the state of the turn controller.
type Phase uint8

const (
	PhaseAwaitingFirstRoll Phase = iota
	PhaseAwaitingRoll
	PhaseAwaitingMove
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseAwaitingFirstRoll: "awaiting_first_roll",
	PhaseAwaitingRoll:      "awaiting_roll",
	PhaseAwaitingMove:      "awaiting_move",
	PhaseGameOver:          "game_over",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", p)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for ph, name := range phaseNames {
		if name == string(b) {
			*p = ph
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// GameOptions configures a new game.
type GameOptions struct {
	// Roller draws dice. DefaultRoller is used when nil.
	Roller Roller
	// Position to start from instead of the starting position.
	Position *Position
	// Player on turn. When unset the game starts with the first roll.
	Player Player
	// Roll already thrown by Player. When nil Player has yet to roll.
	Roll *Roll
}

// Game is one backgammon game: the canonical position and the turn state.
// A Game is not safe for concurrent use; callers serialize access and hand
// copies from Position or Snapshot to concurrent readers.
type Game struct {
	position Position
	current  Player
	dice     DiceState
	winner   Player
	phase    Phase
	roller   Roller
	plies    int
}

// NewGame creates a game from opts.
func NewGame(opts GameOptions) (*Game, error) {
	g := &Game{
		position: StartingPosition(),
		roller:   opts.Roller,
		phase:    PhaseAwaitingFirstRoll,
	}
	if g.roller == nil {
		g.roller = DefaultRoller
	}
	if opts.Position != nil {
		if err := opts.Position.Check(); err != nil {
			return nil, err
		}
		g.position = *opts.Position
	}

	if opts.Player == NoPlayer {
		if opts.Roll != nil {
			return nil, fmt.Errorf("%w: roll given without a player", ErrWrongPhase)
		}
		return g, nil
	}
	if !opts.Player.Valid() {
		return nil, fmt.Errorf("invalid player %d", opts.Player)
	}
	for _, p := range Players {
		if g.position.OffCount(p) == NumCheckers {
			g.winner = p
			g.phase = PhaseGameOver
			return g, nil
		}
	}

	g.current = opts.Player
	g.phase = PhaseAwaitingRoll
	if opts.Roll != nil {
		roll, err := NewRoll(opts.Roll[0], opts.Roll[1])
		if err != nil {
			return nil, err
		}
		g.startTurn(roll)
	}
	return g, nil
}

// NewStandardGame creates a game from the starting position awaiting the
// first roll.
func NewStandardGame() *Game {
	g, _ := NewGame(GameOptions{})
	return g
}

// RollFirst has each side throw one die until they differ. The higher die
// moves first, playing both dice as its roll.
func (g *Game) RollFirst() (Player, Roll, error) {
	if g.phase != PhaseAwaitingFirstRoll {
		return NoPlayer, Roll{}, g.phaseError(PhaseAwaitingFirstRoll)
	}
	for {
		x, o := g.roller.Die(), g.roller.Die()
		if x != o {
			return g.SetFirstRoll(x, o)
		}
		log.Debug().Int("die", x).Msg("first roll tied, rolling again")
	}
}

// SetFirstRoll installs an externally thrown first roll.
func (g *Game) SetFirstRoll(xDie, oDie int) (Player, Roll, error) {
	if g.phase != PhaseAwaitingFirstRoll {
		return NoPlayer, Roll{}, g.phaseError(PhaseAwaitingFirstRoll)
	}
	roll, err := NewRoll(xDie, oDie)
	if err != nil {
		return NoPlayer, Roll{}, err
	}
	if roll.IsDouble() {
		return NoPlayer, Roll{}, fmt.Errorf("%w: first roll tied at %d", ErrInvalidDice, xDie)
	}
	g.current = PlayerX
	if oDie > xDie {
		g.current = PlayerO
	}
	g.startTurn(roll)
	log.Debug().Str("player", g.current.String()).Str("roll", roll.String()).Msg("first roll")
	return g.current, roll, nil
}

// Roll throws the dice for the player on turn.
func (g *Game) Roll() (Roll, error) {
	if g.phase != PhaseAwaitingRoll {
		return Roll{}, g.phaseError(PhaseAwaitingRoll)
	}
	roll := RollDice(g.roller)
	g.startTurn(roll)
	return roll, nil
}

// SetRoll installs dice thrown elsewhere for the player on turn.
func (g *Game) SetRoll(d1, d2 int) (Roll, error) {
	if g.phase != PhaseAwaitingRoll {
		return Roll{}, g.phaseError(PhaseAwaitingRoll)
	}
	roll, err := NewRoll(d1, d2)
	if err != nil {
		return Roll{}, err
	}
	g.startTurn(roll)
	return roll, nil
}

func (g *Game) startTurn(roll Roll) {
	g.dice = newDiceState(roll)
	g.phase = PhaseAwaitingMove
}

func (g *Game) switchPlayer() {
	prev := g.current
	g.current = g.current.Opponent()
	g.dice = DiceState{}
	g.phase = PhaseAwaitingRoll
	log.Debug().Str("from", prev.String()).Str("to", g.current.String()).Msg("turn passes")
}

func (g *Game) phaseError(want Phase) error {
	if g.phase == PhaseGameOver {
		return ErrGameOver
	}
	return fmt.Errorf("%w: %s, need %s", ErrWrongPhase, g.phase, want)
}

// LegalSequences returns the plays Apply accepts for the player on turn with
// the dice still outstanding.
func (g *Game) LegalSequences() ([]Sequence, error) {
	if g.phase != PhaseAwaitingMove {
		return nil, g.phaseError(PhaseAwaitingMove)
	}
	return PlayableSequences(g.position, g.current, g.dice.Roll, g.dice.Remaining()), nil
}

// validate checks the turn preconditions and then the sequence itself.
func (g *Game) validate(player Player, seq Sequence) (Sequence, error) {
	if g.winner != NoPlayer {
		return nil, ErrGameOver
	}
	if player != g.current || g.phase == PhaseAwaitingFirstRoll {
		return nil, fmt.Errorf("%w: %s to play", ErrNotYourTurn, g.current)
	}
	if g.phase != PhaseAwaitingMove || len(g.dice.Remaining()) == 0 {
		return nil, ErrNoDiceOutstanding
	}
	return ValidateSequence(g.position, player, g.dice.Roll, g.dice.Remaining(), seq)
}

// Validate reports why seq is not a legal play for player, or nil.
func (g *Game) Validate(player Player, seq Sequence) error {
	_, err := g.validate(player, seq)
	return err
}

// IsValid reports whether seq is a legal play for player.
func (g *Game) IsValid(player Player, seq Sequence) bool {
	return g.Validate(player, seq) == nil
}

// Position returns a copy of the canonical position.
func (g *Game) Position() Position { return g.position }

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// CurrentPlayer returns the player on turn, NoPlayer before the first roll.
func (g *Game) CurrentPlayer() Player { return g.current }

// Winner returns the winner, NoPlayer while the game is running.
func (g *Game) Winner() Player { return g.winner }

// Dice returns a copy of the dice state.
func (g *Game) Dice() DiceState { return g.dice.clone() }

// Plies returns the number of sequences applied so far, passes included.
func (g *Game) Plies() int { return g.plies }
