// bgengine - backgammon rules engine command line
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/gammon/internal/config"
	"github.com/yourusername/gammon/internal/scenario"
	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "legal":
		cmdLegal(args)
	case "validate":
		cmdValidate(args)
	case "check":
		cmdCheck(args)
	case "selfplay":
		cmdSelfPlay(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bgengine - Backgammon Rules Engine

Usage: bgengine <command> [options]

Commands:
  legal     List the legal plays for a roll
  validate  Check a submitted play
  check     Run rule scenarios from a YAML file
  selfplay  Play games between two policies

Use "bgengine <command> -h" for command-specific help.

Position ID Format:
  The position is specified using gnubg's position ID format, seen from
  the player on roll. Example: "4HPwATDgc/ABMA" (the starting position).

Move Notation:
  Points are numbered 0-23. X moves toward 0, O toward 23.
  Example: "bar/20 12/6 3/off"; "pass" for no move.`)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads the configuration file (or defaults) and applies the
// log level.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fail("%v", err)
	}
	cfg.ApplyLogLevel()
	return cfg
}

func parsePosition(posStr string, onRoll engine.Player) (engine.Position, error) {
	// Handle gnubg format "positionID:matchID" - we only need the position part
	if idx := strings.Index(posStr, ":"); idx >= 0 {
		posStr = posStr[:idx]
	}
	if posStr == "" {
		return engine.StartingPosition(), nil
	}
	return engine.PositionFromID(posStr, onRoll)
}

func parseDice(diceStr string) (engine.Roll, error) {
	parts := strings.Split(diceStr, ",")
	if len(parts) != 2 {
		parts = strings.Split(diceStr, "-")
	}
	if len(parts) != 2 {
		return engine.Roll{}, fmt.Errorf("dice should be in format '3,1' or '3-1'")
	}

	d1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	d2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return engine.Roll{}, fmt.Errorf("dice values must be 1-6")
	}
	return engine.NewRoll(d1, d2)
}

// turnFlags are shared by the commands working on one position and roll.
type turnFlags struct {
	position *string
	dice     *string
	player   *string
}

func addTurnFlags(fs *flag.FlagSet) turnFlags {
	return turnFlags{
		position: fs.String("p", "", "Position ID (gnubg format, default starting position)"),
		dice:     fs.String("d", "", "Dice roll (e.g., 3,1 or 3-1)"),
		player:   fs.String("player", "X", "Player on roll (X or O)"),
	}
}

func (f turnFlags) parse() (engine.Position, engine.Player, engine.Roll) {
	player, err := engine.ParsePlayer(*f.player)
	if err != nil || !player.Valid() {
		fail("player must be X or O")
	}
	if *f.dice == "" {
		fail("dice required")
	}
	roll, err := parseDice(*f.dice)
	if err != nil {
		fail("%v", err)
	}
	pos, err := parsePosition(*f.position, player)
	if err != nil {
		fail("%v", err)
	}
	return pos, player, roll
}

func cmdLegal(args []string) {
	fs := flag.NewFlagSet("legal", flag.ExitOnError)
	tf := addTurnFlags(fs)
	rank := fs.Bool("rank", false, "Order plays by heuristic score")
	limit := fs.Int("n", 0, "Number of plays to show (0 = all)")
	fs.Parse(args)

	pos, player, roll := tf.parse()
	legal := engine.PlayableSequences(pos, player, roll, roll.Dice())
	if len(legal) == 0 {
		fmt.Println("No legal moves (forced to pass)")
		return
	}

	h := policy.NewHeuristic()
	scores := make([]float64, len(legal))
	for i, seq := range legal {
		scores[i] = h.Score(pos.After(player, seq), player)
	}
	order := make([]int, len(legal))
	for i := range order {
		order[i] = i
	}
	if *rank {
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})
	}
	n := len(order)
	if *limit > 0 && *limit < n {
		n = *limit
	}

	fmt.Printf("%d legal plays for %s, roll %s (pips %d-%d):\n", len(legal), player, roll,
		pos.PipCount(player), pos.PipCount(player.Opponent()))
	for i, idx := range order[:n] {
		fmt.Printf("  %3d. %-24s  score: %+.2f\n", i+1, legal[idx], scores[idx])
	}
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	tf := addTurnFlags(fs)
	moves := fs.String("m", "", "Moves to check (e.g., \"7/4 5/4\")")
	fs.Parse(args)

	pos, player, roll := tf.parse()
	seq, err := engine.ParseSequence(*moves)
	if err != nil {
		fail("%v", err)
	}

	played, err := engine.ValidateSequence(pos, player, roll, roll.Dice(), seq)
	if err != nil {
		fmt.Printf("INVALID %s: %v\n", seq, err)
		os.Exit(2)
	}
	after := pos.After(player, played)
	fmt.Printf("VALID %s (dice %v)\n", played, played.Dice())
	fmt.Printf("  Position after: %s\n", after.ID(player.Opponent()))
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	file := fs.String("f", "", "Scenario file (YAML)")
	verbose := fs.Bool("v", false, "Print passing scenarios too")
	fs.Parse(args)

	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: scenario file required")
		fmt.Fprintln(os.Stderr, "Usage: bgengine check -f <rules.yaml>")
		os.Exit(1)
	}

	scenarios, err := scenario.LoadFile(*file)
	if err != nil {
		fail("%v", err)
	}

	failed := 0
	for i := range scenarios {
		s := &scenarios[i]
		if err := s.Check(); err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", s.Name, err)
		} else if *verbose {
			fmt.Printf("ok    %s\n", s.Name)
		}
	}
	fmt.Printf("%d scenarios, %d failed\n", len(scenarios), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func cmdSelfPlay(args []string) {
	fs := flag.NewFlagSet("selfplay", flag.ExitOnError)
	cfgFile := fs.String("config", "", "Config file (default ./gammon.yaml if present)")
	games := fs.Int("games", 0, "Number of games (default from config)")
	workers := fs.Int("workers", 0, "Number of worker goroutines (0 = from config/auto)")
	seed := fs.Int64("seed", 0, "Random seed (0 = from config/random)")
	maxTurns := fs.Int("max-turns", 0, "Abandon games after N plies")
	x := fs.String("x", "", "Policy for X ("+strings.Join(policy.Names(), ", ")+")")
	o := fs.String("o", "", "Policy for O")
	progress := fs.Bool("progress", false, "Log progress after every game")
	fs.Parse(args)

	cfg := loadConfig(*cfgFile)
	opts := cfg.SelfPlay.Options()
	if *games > 0 {
		opts.Games = *games
	}
	if *workers > 0 {
		opts.Workers = *workers
	}
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *maxTurns > 0 {
		opts.MaxTurns = *maxTurns
	}
	if *x != "" {
		opts.X = *x
	}
	if *o != "" {
		opts.O = *o
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	var callback policy.ProgressCallback
	if *progress {
		callback = func(p policy.SelfPlayProgress) {
			log.Info().Int("done", p.GamesCompleted).Int("total", p.GamesTotal).
				Int("x_wins", p.XWins).Int("o_wins", p.OWins).Msg("progress")
		}
	}

	res, err := policy.SelfPlay(ctx, opts, callback)
	if err != nil {
		fail("self-play: %v", err)
	}

	fmt.Printf("Self-play %s (X) vs %s (O), %d games, %.1fs:\n", opts.X, opts.O, res.Games, res.Elapsed.Seconds())
	fmt.Printf("  X wins:    %d (%.1f%%)\n", res.XWins, pct(res.XWins, res.Games))
	fmt.Printf("  O wins:    %d (%.1f%%)\n", res.OWins, pct(res.OWins, res.Games))
	if res.Truncated > 0 {
		fmt.Printf("  Truncated: %d\n", res.Truncated)
	}
	fmt.Printf("  Avg plies: %.1f, hits: %d\n", res.AvgPlies, res.Hits)
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
