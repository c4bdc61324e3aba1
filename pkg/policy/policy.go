// Package policy picks one play out of the legal sequences the engine offers
// and runs whole games between policies.
package policy

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"lukechampine.com/frand"

	"github.com/yourusername/gammon/pkg/engine"
)

// Policy chooses a play. legal is never empty; callers pass when the engine
// offers no sequences.
type Policy interface {
	Name() string
	Choose(pos engine.Position, player engine.Player, legal []engine.Sequence) engine.Sequence
}

// Random picks uniformly among the legal sequences.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a Random policy. A zero seed draws from a
// cryptographically seeded source; any other seed is reproducible.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		return &Random{}
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Choose(_ engine.Position, _ engine.Player, legal []engine.Sequence) engine.Sequence {
	if r.rng == nil {
		return legal[frand.Intn(len(legal))]
	}
	return legal[r.rng.Intn(len(legal))]
}

// Feature indexes of the heuristic evaluation.
const (
	FeaturePipLead = iota
	FeatureBlots
	FeatureMadePoints
	FeatureHomePoints
	FeatureBorneOff
	FeatureOpponentOnBar
	FeatureBackEscapes
	NumFeatures
)

// DefaultWeights favours racing ahead, safe points and hitting.
var DefaultWeights = []float64{
	FeaturePipLead:       0.1,
	FeatureBlots:         -1.5,
	FeatureMadePoints:    1.0,
	FeatureHomePoints:    1.5,
	FeatureBorneOff:      2.0,
	FeatureOpponentOnBar: 2.5,
	FeatureBackEscapes:   0.05,
}

// DefaultRaceWeights apply once there is no contact: only speed matters.
var DefaultRaceWeights = []float64{
	FeaturePipLead:  0.2,
	FeatureBorneOff: 2.0,
}

// Heuristic scores the position each sequence leads to with a weighted sum
// of features and plays the best one. Ties go to the first sequence.
// RaceWeights replace Weights in race and bear-off positions.
type Heuristic struct {
	Weights     []float64
	RaceWeights []float64
}

// NewHeuristic returns a Heuristic with the default weights.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		Weights:     fitWeights(DefaultWeights),
		RaceWeights: fitWeights(DefaultRaceWeights),
	}
}

// fitWeights copies w into a slice of NumFeatures weights, zero-padding or
// dropping the tail.
func fitWeights(w []float64) []float64 {
	out := make([]float64, NumFeatures)
	copy(out, w)
	return out
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Choose(pos engine.Position, player engine.Player, legal []engine.Sequence) engine.Sequence {
	best, bestScore := 0, 0.0
	for i, seq := range legal {
		score := h.Score(pos.After(player, seq), player)
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return legal[best]
}

// Score evaluates pos for player.
func (h *Heuristic) Score(pos engine.Position, player engine.Player) float64 {
	w := h.Weights
	if c := Classify(pos); c != ClassContact && h.RaceWeights != nil {
		w = h.RaceWeights
	}
	if len(w) != NumFeatures {
		w = fitWeights(w)
	}
	return floats.Dot(w, Features(pos, player))
}

// Features extracts the heuristic features of pos from player's side.
func Features(pos engine.Position, player engine.Player) []float64 {
	f := make([]float64, NumFeatures)
	opp := player.Opponent()
	f[FeaturePipLead] = float64(pos.PipCount(opp) - pos.PipCount(player))
	for pip, pt := range pos.Points {
		if pt.Owner != player {
			continue
		}
		switch {
		case pt.Count == 1:
			f[FeatureBlots]++
		case engine.InHome(player, pip):
			f[FeatureMadePoints]++
			f[FeatureHomePoints]++
		default:
			f[FeatureMadePoints]++
		}
	}
	f[FeatureBorneOff] = float64(pos.OffCount(player))
	f[FeatureOpponentOnBar] = float64(pos.BarCount(opp))
	f[FeatureBackEscapes] = float64(backEscapes(pos, player))
	return f
}

var constructors = map[string]func(seed int64) Policy{
	"random":    func(seed int64) Policy { return NewRandom(seed) },
	"heuristic": func(int64) Policy { return NewHeuristic() },
}

// Names lists the known policy names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds a policy from its name. seed only affects random policies.
func ByName(name string, seed int64) (Policy, error) {
	c, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return c(seed), nil
}
