package policy

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/gammon/pkg/engine"
)

// SelfPlayOptions controls a batch of games between two policies.
type SelfPlayOptions struct {
	Games    int    // Number of games to play
	Workers  int    // Parallel workers (0 = GOMAXPROCS)
	Seed     int64  // Dice and policy seed (0 = random)
	MaxTurns int    // Abandon a game after this many plies (0 = 2000)
	X        string // Policy name for X
	O        string // Policy name for O
}

// DefaultSelfPlayOptions returns sensible defaults.
func DefaultSelfPlayOptions() SelfPlayOptions {
	return SelfPlayOptions{
		Games:    100,
		Workers:  0,
		Seed:     0,
		MaxTurns: 2000,
		X:        "heuristic",
		O:        "random",
	}
}

// SelfPlayProgress is reported after each finished game.
type SelfPlayProgress struct {
	GamesCompleted int     `json:"games_completed"`
	GamesTotal     int     `json:"games_total"`
	Percent        float64 `json:"percent"`
	XWins          int     `json:"x_wins"`
	OWins          int     `json:"o_wins"`
}

// ProgressCallback receives self-play progress. Calls are serialized.
type ProgressCallback func(progress SelfPlayProgress)

// GameResult is the outcome of one game.
type GameResult struct {
	Winner    engine.Player
	Plies     int
	Hits      int
	Truncated bool
}

// SelfPlayResult aggregates a batch of games.
type SelfPlayResult struct {
	Games     int           `json:"games"`
	XWins     int           `json:"x_wins"`
	OWins     int           `json:"o_wins"`
	Truncated int           `json:"truncated"`
	AvgPlies  float64       `json:"avg_plies"`
	Hits      int           `json:"hits"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// PlayGame plays g to the end, or until maxTurns plies have been applied.
// Checker conservation is verified after every play.
func PlayGame(ctx context.Context, g *engine.Game, x, o Policy, maxTurns int) (GameResult, error) {
	var res GameResult
	if g.Phase() == engine.PhaseAwaitingFirstRoll {
		if _, _, err := g.RollFirst(); err != nil {
			return res, err
		}
	}

	for g.Winner() == engine.NoPlayer {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if maxTurns > 0 && g.Plies() >= maxTurns {
			res.Truncated = true
			break
		}
		if g.Phase() == engine.PhaseAwaitingRoll {
			if _, err := g.Roll(); err != nil {
				return res, err
			}
		}

		legal, err := g.LegalSequences()
		if err != nil {
			return res, err
		}
		player := g.CurrentPlayer()
		var seq engine.Sequence
		if len(legal) > 0 {
			p := x
			if player == engine.PlayerO {
				p = o
			}
			seq = p.Choose(g.Position(), player, legal)
		}

		out, err := g.Apply(player, seq)
		if err != nil {
			return res, fmt.Errorf("%s played %s: %w", player, seq, err)
		}
		res.Hits += out.Hits
		if err := g.Position().Check(); err != nil {
			return res, err
		}
	}

	res.Winner = g.Winner()
	res.Plies = g.Plies()
	return res, nil
}

// partialResult holds results from a single worker.
type partialResult struct {
	games     int
	xWins     int
	oWins     int
	truncated int
	plies     int
	hits      int
}

func (pr *partialResult) add(r GameResult) {
	pr.games++
	pr.plies += r.Plies
	pr.hits += r.Hits
	switch {
	case r.Truncated:
		pr.truncated++
	case r.Winner == engine.PlayerX:
		pr.xWins++
	case r.Winner == engine.PlayerO:
		pr.oWins++
	}
}

// SelfPlay plays opts.Games games between the X and O policies across
// parallel workers. Each worker owns its policies and dice, seeded from
// opts.Seed, so a non-zero seed with a fixed worker count is reproducible.
func SelfPlay(ctx context.Context, opts SelfPlayOptions, callback ProgressCallback) (*SelfPlayResult, error) {
	logger := zerolog.Ctx(ctx)

	if opts.Games <= 0 {
		opts.Games = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Games {
		opts.Workers = opts.Games
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 2000
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Int63()
	}
	for _, name := range []string{opts.X, opts.O} {
		if _, err := ByName(name, 0); err != nil {
			return nil, err
		}
	}

	gamesPerWorker := opts.Games / opts.Workers
	extraGames := opts.Games % opts.Workers
	logger.Debug().Int("games", opts.Games).Int("workers", opts.Workers).
		Str("x", opts.X).Str("o", opts.O).Msg("self-play starting")

	tstart := time.Now()
	results := make(chan GameResult, opts.Workers)
	eg, ctx := errgroup.WithContext(ctx)

	for i := 0; i < opts.Workers; i++ {
		workerGames := gamesPerWorker
		if i < extraGames {
			workerGames++
		}
		workerSeed := opts.Seed + int64(i)*1000000

		eg.Go(func() error {
			return selfPlayWorker(ctx, opts, workerGames, workerSeed, results)
		})
	}

	// Close channel when all workers done
	var werr error
	done := make(chan struct{})
	go func() {
		werr = eg.Wait()
		close(results)
		close(done)
	}()

	var total partialResult
	for r := range results {
		total.add(r)
		if callback != nil {
			callback(SelfPlayProgress{
				GamesCompleted: total.games,
				GamesTotal:     opts.Games,
				Percent:        100.0 * float64(total.games) / float64(opts.Games),
				XWins:          total.xWins,
				OWins:          total.oWins,
			})
		}
	}
	<-done
	if werr != nil {
		logger.Err(werr).Int("completed", total.games).Msg("self-play stopped")
		return nil, werr
	}

	res := &SelfPlayResult{
		Games:     total.games,
		XWins:     total.xWins,
		OWins:     total.oWins,
		Truncated: total.truncated,
		Hits:      total.hits,
		Elapsed:   time.Since(tstart),
	}
	if total.games > 0 {
		res.AvgPlies = float64(total.plies) / float64(total.games)
	}
	logger.Info().Int("games", res.Games).Int("x_wins", res.XWins).Int("o_wins", res.OWins).
		Dur("elapsed", res.Elapsed).Msg("self-play finished")
	return res, nil
}

func selfPlayWorker(ctx context.Context, opts SelfPlayOptions, games int, seed int64, results chan<- GameResult) error {
	x, err := ByName(opts.X, seed+1)
	if err != nil {
		return err
	}
	o, err := ByName(opts.O, seed+2)
	if err != nil {
		return err
	}
	roller := engine.NewRandRoller(seed)

	for n := 0; n < games; n++ {
		g, err := engine.NewGame(engine.GameOptions{Roller: roller})
		if err != nil {
			return err
		}
		r, err := PlayGame(ctx, g, x, o, opts.MaxTurns)
		if err != nil {
			return err
		}
		select {
		case results <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
