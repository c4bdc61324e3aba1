package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matryer/is"

	"github.com/yourusername/gammon/pkg/engine"
)

func TestByName(t *testing.T) {
	is := is.New(t)
	for _, name := range Names() {
		p, err := ByName(name, 1)
		is.NoErr(err)
		is.Equal(p.Name(), name)
	}
	_, err := ByName("gnubg", 1)
	is.True(err != nil)
}

func TestRandomIsReproducible(t *testing.T) {
	is := is.New(t)
	legal := engine.LegalSequences(engine.StartingPosition(), engine.PlayerX, engine.Roll{3, 1})
	a, b := NewRandom(9), NewRandom(9)
	for i := 0; i < 20; i++ {
		is.Equal(a.Choose(engine.Position{}, engine.PlayerX, legal).Key(),
			b.Choose(engine.Position{}, engine.PlayerX, legal).Key())
	}
}

func TestHeuristicPrefersHitting(t *testing.T) {
	is := is.New(t)
	var pos engine.Position
	pos.Points[12] = engine.Point{Owner: engine.PlayerX, Count: 2}
	pos.Points[9] = engine.Point{Owner: engine.PlayerO, Count: 1}
	pos.Points[20] = engine.Point{Owner: engine.PlayerO, Count: 2}
	pos.BorneOff = [2]uint8{13, 12}
	is.NoErr(pos.Check())

	legal := engine.LegalSequences(pos, engine.PlayerX, engine.Roll{6, 3})
	is.True(len(legal) > 0)
	best := NewHeuristic().Choose(pos, engine.PlayerX, legal)
	after := pos.After(engine.PlayerX, best)
	is.Equal(after.BarCount(engine.PlayerO), 1)
}

func TestFeatures(t *testing.T) {
	is := is.New(t)
	f := Features(engine.StartingPosition(), engine.PlayerX)
	is.Equal(len(f), NumFeatures)
	is.Equal(f[FeaturePipLead], 0.0)
	is.Equal(f[FeatureBlots], 0.0)
	is.Equal(f[FeatureMadePoints], 4.0)
	is.Equal(f[FeatureHomePoints], 1.0)
	is.Equal(f[FeatureBorneOff], 0.0)
}

func TestPlayGameFinishes(t *testing.T) {
	is := is.New(t)
	g, err := engine.NewGame(engine.GameOptions{Roller: engine.NewRandRoller(5)})
	is.NoErr(err)
	res, err := PlayGame(context.Background(), g, NewHeuristic(), NewRandom(5), 0)
	is.NoErr(err)
	is.True(res.Winner.Valid())
	is.True(res.Plies > 0)
	is.Equal(g.Phase(), engine.PhaseGameOver)
}

func TestPlayGameTruncates(t *testing.T) {
	is := is.New(t)
	g, err := engine.NewGame(engine.GameOptions{Roller: engine.NewRandRoller(5)})
	is.NoErr(err)
	res, err := PlayGame(context.Background(), g, NewRandom(1), NewRandom(2), 4)
	is.NoErr(err)
	is.True(res.Truncated)
	is.Equal(res.Winner, engine.NoPlayer)
}

func TestSelfPlay(t *testing.T) {
	is := is.New(t)
	opts := DefaultSelfPlayOptions()
	opts.Games = 12
	opts.Workers = 3
	opts.Seed = 42

	var mu sync.Mutex
	var last SelfPlayProgress
	calls := 0
	res, err := SelfPlay(context.Background(), opts, func(p SelfPlayProgress) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		last = p
	})
	is.NoErr(err)
	is.Equal(res.Games, 12)
	is.Equal(res.XWins+res.OWins+res.Truncated, 12)
	is.True(res.AvgPlies > 0)
	is.Equal(calls, 12)
	is.Equal(last.GamesCompleted, 12)
	is.Equal(last.Percent, 100.0)

	again, err := SelfPlay(context.Background(), opts, nil)
	is.NoErr(err)
	is.Equal(again.XWins, res.XWins)
	is.Equal(again.Hits, res.Hits)
}

func TestSelfPlayCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultSelfPlayOptions()
	opts.Games = 4
	_, err := SelfPlay(ctx, opts, nil)
	is.True(errors.Is(err, context.Canceled))
}

func TestSelfPlayUnknownPolicy(t *testing.T) {
	is := is.New(t)
	opts := DefaultSelfPlayOptions()
	opts.O = "oracle"
	_, err := SelfPlay(context.Background(), opts, nil)
	is.True(err != nil)
}
