// Package scenario loads backgammon rule scenarios from YAML and checks them
// against the engine. A scenario places checkers, sets the dice and submits a
// move, then states whether the move must be accepted and, if not, why.
//
//	scenarios:
//	  - name: forced larger die
//	    player: X
//	    dice: [6, 2]
//	    points:
//	      - {pip: 8, owner: X, count: 1}
//	    move: "8/6"
//	    valid: false
//	    error: suboptimal
//
// Checkers not placed on a point or the bar are borne off.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/gammon/pkg/engine"
)

// Placement puts count checkers of owner on pip.
type Placement struct {
	Pip   int    `yaml:"pip"`
	Owner string `yaml:"owner"`
	Count int    `yaml:"count"`
}

// Scenario is one rule check.
type Scenario struct {
	Name   string         `yaml:"name"`
	Player string         `yaml:"player"`
	Dice   []int          `yaml:"dice"`
	Start  bool           `yaml:"start,omitempty"`
	ID     string         `yaml:"position_id,omitempty"`
	Points []Placement    `yaml:"points,omitempty"`
	Bar    map[string]int `yaml:"bar,omitempty"`
	Move   string         `yaml:"move"`
	Valid  bool           `yaml:"valid"`
	Error  string         `yaml:"error,omitempty"`
	// Legal is the expected number of maximal plays, checked when set.
	Legal *int `yaml:"legal,omitempty"`
}

type file struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// ErrorKinds maps the names used in scenario files to engine errors.
var ErrorKinds = map[string]error{
	"malformed":     engine.ErrMalformedMove,
	"not_your_turn": engine.ErrNotYourTurn,
	"no_dice":       engine.ErrNoDiceOutstanding,
	"illegal":       engine.ErrIllegalSubMove,
	"suboptimal":    engine.ErrSuboptimalPlay,
	"game_over":     engine.ErrGameOver,
}

// ErrMismatch is returned by Check when the engine disagrees with a scenario.
var ErrMismatch = errors.New("scenario mismatch")

// Load reads scenarios from r.
func Load(r io.Reader) ([]Scenario, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding scenarios: %w", err)
	}
	for i, s := range f.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario %d has no name", i)
		}
		if s.Error != "" {
			if _, ok := ErrorKinds[s.Error]; !ok {
				return nil, fmt.Errorf("scenario %q: unknown error kind %q", s.Name, s.Error)
			}
		}
	}
	return f.Scenarios, nil
}

// LoadFile reads scenarios from a YAML file.
func LoadFile(path string) ([]Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Position builds the scenario's board.
func (s *Scenario) Position() (engine.Position, error) {
	if s.Start {
		return engine.StartingPosition(), nil
	}
	if s.ID != "" {
		p, err := s.player()
		if err != nil {
			return engine.Position{}, err
		}
		return engine.PositionFromID(s.ID, p)
	}

	var pos engine.Position
	for _, pl := range s.Points {
		owner, err := engine.ParsePlayer(pl.Owner)
		if err != nil {
			return pos, err
		}
		if pl.Pip < 0 || pl.Pip >= engine.NumPoints || !owner.Valid() || pl.Count <= 0 {
			return pos, fmt.Errorf("bad placement %+v", pl)
		}
		pos.Points[pl.Pip] = engine.Point{Owner: owner, Count: uint8(pl.Count)}
	}
	for name, n := range s.Bar {
		p, err := engine.ParsePlayer(name)
		if err != nil {
			return pos, err
		}
		if !p.Valid() {
			return pos, fmt.Errorf("bad bar entry %q", name)
		}
		pos.Bar[p-1] = uint8(n)
	}
	for i, p := range engine.Players {
		n := engine.NumCheckers - pos.CheckerCount(p)
		if n < 0 {
			return pos, fmt.Errorf("%w: %s has %d extra checkers", engine.ErrInvalidPosition, p, -n)
		}
		pos.BorneOff[i] = uint8(n)
	}
	return pos, pos.Check()
}

func (s *Scenario) player() (engine.Player, error) {
	p, err := engine.ParsePlayer(s.Player)
	if err != nil {
		return engine.NoPlayer, err
	}
	if !p.Valid() {
		return engine.NoPlayer, fmt.Errorf("scenario %q: no player", s.Name)
	}
	return p, nil
}

// Game sets up a game with the scenario's player on turn holding its dice.
func (s *Scenario) Game() (*engine.Game, error) {
	pos, err := s.Position()
	if err != nil {
		return nil, err
	}
	p, err := s.player()
	if err != nil {
		return nil, err
	}
	if len(s.Dice) != 2 {
		return nil, fmt.Errorf("scenario %q: need two dice, got %v", s.Name, s.Dice)
	}
	roll, err := engine.NewRoll(s.Dice[0], s.Dice[1])
	if err != nil {
		return nil, err
	}
	return engine.NewGame(engine.GameOptions{Position: &pos, Player: p, Roll: &roll})
}

// Check runs the scenario and returns nil when the engine agrees with it.
func (s *Scenario) Check() error {
	g, err := s.Game()
	if err != nil {
		return err
	}
	p, _ := s.player()

	if s.Legal != nil {
		legal, err := g.LegalSequences()
		if err != nil {
			return err
		}
		if len(legal) != *s.Legal {
			return fmt.Errorf("%w: %q: %d legal plays, want %d", ErrMismatch, s.Name, len(legal), *s.Legal)
		}
	}

	seq, err := engine.ParseSequence(s.Move)
	if err == nil {
		err = g.Validate(p, seq)
	}
	switch {
	case s.Valid && err != nil:
		return fmt.Errorf("%w: %q: rejected: %v", ErrMismatch, s.Name, err)
	case !s.Valid && err == nil:
		return fmt.Errorf("%w: %q: accepted %s", ErrMismatch, s.Name, s.Move)
	case !s.Valid && s.Error != "" && !errors.Is(err, ErrorKinds[s.Error]):
		return fmt.Errorf("%w: %q: got %v, want %s", ErrMismatch, s.Name, err, s.Error)
	}
	return nil
}

// Names returns the sorted names of the error kinds.
func Names() []string {
	names := make([]string, 0, len(ErrorKinds))
	for k := range ErrorKinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
