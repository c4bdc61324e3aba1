package engine

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/samber/lo"
	"lukechampine.com/frand"
)

// DieFaces is the number of faces on a die
const DieFaces = 6

// Roll is a pair of dice sorted in descending order.
type Roll [2]int

// NewRoll validates two die values and returns them sorted descending.
func NewRoll(d1, d2 int) (Roll, error) {
	if !validDie(d1) || !validDie(d2) {
		return Roll{}, fmt.Errorf("%w: %d-%d", ErrInvalidDice, d1, d2)
	}
	if d2 > d1 {
		d1, d2 = d2, d1
	}
	return Roll{d1, d2}, nil
}

func validDie(d int) bool {
	return d >= 1 && d <= DieFaces
}

// IsDouble reports whether both dice show the same value.
func (r Roll) IsDouble() bool {
	return r[0] == r[1]
}

// High is the larger die.
func (r Roll) High() int { return r[0] }

// Low is the smaller die.
func (r Roll) Low() int { return r[1] }

// Dice returns the multiset of die instances the roll provides: four for a
// double, two otherwise.
func (r Roll) Dice() []int {
	if r.IsDouble() {
		return []int{r[0], r[0], r[0], r[0]}
	}
	return []int{r[0], r[1]}
}

func (r Roll) String() string {
	return fmt.Sprintf("%d-%d", r[0], r[1])
}

// Roller draws uniformly distributed die values.
type Roller interface {
	Die() int
}

type frandRoller struct{}

func (frandRoller) Die() int {
	return frand.Intn(DieFaces) + 1
}

// DefaultRoller draws dice from a cryptographically seeded generator.
var DefaultRoller Roller = frandRoller{}

// RandRoller is a reproducible Roller. It is safe for concurrent use.
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandRoller returns a Roller seeded with seed.
func NewRandRoller(seed int64) *RandRoller {
	return &RandRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandRoller) Die() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(DieFaces) + 1
}

// FixedRoller replays a fixed list of die values, cycling when exhausted.
type FixedRoller struct {
	mu   sync.Mutex
	dice []int
	next int
}

// NewFixedRoller returns a Roller that yields dice in order.
func NewFixedRoller(dice ...int) *FixedRoller {
	return &FixedRoller{dice: dice}
}

func (r *FixedRoller) Die() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.dice[r.next%len(r.dice)]
	r.next++
	return d
}

// RollDice draws a Roll from r.
func RollDice(r Roller) Roll {
	roll, _ := NewRoll(r.Die(), r.Die())
	return roll
}

// DiceUsage tracks which die instances of a roll have been consumed. It is
// either a *DoubleUsage or a *SplitUsage.
type DiceUsage interface {
	// Remaining lists the unused die values, largest first.
	Remaining() []int
	// Use marks one unused instance of die as consumed.
	Use(die int) error
	// Played counts consumed die instances.
	Played() int
	// Done reports whether every die has been consumed.
	Done() bool

	clone() DiceUsage
}

// NewDiceUsage returns a fresh tracker for roll.
func NewDiceUsage(roll Roll) DiceUsage {
	if roll.IsDouble() {
		return &DoubleUsage{Value: roll[0]}
	}
	return &SplitUsage{
		A: DieSlot{Value: roll[0]},
		B: DieSlot{Value: roll[1]},
	}
}

// DoubleUsage tracks the four plays of a double.
type DoubleUsage struct {
	Value int
	Used  [4]bool
}

func (u *DoubleUsage) Remaining() []int {
	var out []int
	for _, used := range u.Used {
		if !used {
			out = append(out, u.Value)
		}
	}
	return out
}

func (u *DoubleUsage) Use(die int) error {
	if die != u.Value {
		return fmt.Errorf("%w: die %d not in double %d", ErrDiceAccounting, die, u.Value)
	}
	for i, used := range u.Used {
		if !used {
			u.Used[i] = true
			return nil
		}
	}
	return fmt.Errorf("%w: all four %ds already played", ErrDiceAccounting, u.Value)
}

func (u *DoubleUsage) Played() int {
	return lo.Count(u.Used[:], true)
}

func (u *DoubleUsage) Done() bool {
	return u.Played() == len(u.Used)
}

func (u *DoubleUsage) clone() DiceUsage {
	c := *u
	return &c
}

// DieSlot is one die of a non-double roll.
type DieSlot struct {
	Value int
	Used  bool
}

// SplitUsage tracks the two dice of a non-double roll. A is the larger die.
type SplitUsage struct {
	A, B DieSlot
}

func (u *SplitUsage) Remaining() []int {
	var out []int
	for _, s := range []DieSlot{u.A, u.B} {
		if !s.Used {
			out = append(out, s.Value)
		}
	}
	return out
}

func (u *SplitUsage) Use(die int) error {
	for _, s := range []*DieSlot{&u.A, &u.B} {
		if s.Value != die {
			continue
		}
		if s.Used {
			return fmt.Errorf("%w: die %d already played", ErrDiceAccounting, die)
		}
		s.Used = true
		return nil
	}
	return fmt.Errorf("%w: die %d not rolled", ErrDiceAccounting, die)
}

func (u *SplitUsage) Played() int {
	return lo.Count([]bool{u.A.Used, u.B.Used}, true)
}

func (u *SplitUsage) Done() bool {
	return u.A.Used && u.B.Used
}

func (u *SplitUsage) clone() DiceUsage {
	c := *u
	return &c
}

// DiceState is the roll of the player on turn together with its usage.
// The zero value means no dice are outstanding.
type DiceState struct {
	Roll  Roll
	Usage DiceUsage
}

func newDiceState(roll Roll) DiceState {
	return DiceState{Roll: roll, Usage: NewDiceUsage(roll)}
}

// Rolled reports whether dice have been rolled this turn.
func (d DiceState) Rolled() bool {
	return d.Usage != nil
}

// Remaining returns the unused die values.
func (d DiceState) Remaining() []int {
	if d.Usage == nil {
		return nil
	}
	return d.Usage.Remaining()
}

// DoublesPlayed counts consumed slots of a double roll, 0 otherwise.
func (d DiceState) DoublesPlayed() int {
	if u, ok := d.Usage.(*DoubleUsage); ok {
		return u.Played()
	}
	return 0
}

func (d DiceState) clone() DiceState {
	if d.Usage != nil {
		d.Usage = d.Usage.clone()
	}
	return d
}
