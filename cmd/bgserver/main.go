// Command bgserver runs the gammon game server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/gammon/internal/config"
	"github.com/yourusername/gammon/pkg/api"
)

const version = "0.1.0"

func main() {
	configFile := flag.String("config", "", "Config file (default ./gammon.yaml if present)")
	host := flag.String("host", "", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 0, "Port to listen on")
	readTimeout := flag.Duration("read-timeout", 0, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 0, "HTTP write timeout")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	jsonLogs := flag.Bool("json", false, "Log JSON instead of console output")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("gammon server v%s\n", version)
		os.Exit(0)
	}

	if !*jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.ApplyLogLevel()

	sc := cfg.Server
	if *host != "" {
		sc.Host = *host
	}
	if *port != 0 {
		sc.Port = *port
	}
	if *readTimeout != 0 {
		sc.ReadTimeout = *readTimeout
	}
	if *writeTimeout != 0 {
		sc.WriteTimeout = *writeTimeout
	}

	server := api.NewServer(sc, version)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
