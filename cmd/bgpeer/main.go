// Command bgpeer plays one game of backgammon against another bgpeer over
// the network. One side hosts (and plays X), the other joins.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/gammon/internal/config"
	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/peer"
	"github.com/yourusername/gammon/pkg/policy"
)

func main() {
	configFile := flag.String("config", "", "Config file (default ./gammon.yaml if present)")
	host := flag.String("host", "", "Host to listen on or connect to")
	port := flag.Int("port", 0, "Peer port")
	join := flag.Bool("join", false, "Join a hosted game instead of hosting")
	pol := flag.String("policy", "", "Move policy ("+strings.Join(policy.Names(), ", ")+")")
	seed := flag.Int64("seed", 0, "Random seed for dice and policy (0 = random)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.ApplyLogLevel()
	if *host != "" {
		cfg.Peer.Host = *host
	}
	if *port != 0 {
		cfg.Peer.Port = *port
	}
	if *pol != "" {
		cfg.Peer.Policy = *pol
	}

	p, err := policy.ByName(cfg.Peer.Policy, *seed)
	if err != nil {
		log.Fatal().Err(err).Msg("bad policy")
	}
	opts := peer.Options{Policy: p}
	if *seed != 0 {
		opts.Roller = engine.NewRandRoller(*seed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	var res *peer.Result
	if *join {
		res, err = peer.Join(ctx, "ws://"+cfg.PeerAddr()+"/", opts)
	} else {
		ln, lerr := peer.Listen(cfg.PeerAddr())
		if lerr != nil {
			log.Fatal().Err(lerr).Msg("listen")
		}
		res, err = peer.Host(ctx, ln, opts)
	}
	if res != nil {
		printResult(res)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("game ended early")
	}
}

func printResult(res *peer.Result) {
	fmt.Printf("Playing %s, %d plies\n", res.Me, res.Plies)
	switch res.Winner {
	case engine.NoPlayer:
		fmt.Println("  No winner")
	case res.Me:
		fmt.Println("  You win")
	default:
		fmt.Println("  You lose")
	}
	if res.Rejected > 0 {
		fmt.Printf("  Ignored %d invalid opponent actions\n", res.Rejected)
	}
	fmt.Printf("  Final position: %s\n", res.Position.ID(engine.PlayerX))
}
