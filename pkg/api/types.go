// Package api provides an HTTP/JSON API hosting backgammon games.
package api

import (
	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

// ============================================================================
// Request Types
// ============================================================================

// CreateGameRequest is the request body for starting a game.
type CreateGameRequest struct {
	Position string `json:"position,omitempty"` // Position ID (gnubg format), default start
	Player   string `json:"player,omitempty"`   // Player on roll ("X"/"O"); empty = first roll
	Dice     []int  `json:"dice,omitempty"`     // Dice already rolled by Player
	Seed     int64  `json:"seed,omitempty"`     // Dice seed (0 = random)
}

// FirstRollRequest is the request body for the opening roll. Both dice zero
// means the server throws them.
type FirstRollRequest struct {
	X int `json:"x,omitempty"` // Die thrown by X
	O int `json:"o,omitempty"` // Die thrown by O
}

// RollRequest is the request body for a roll. Empty dice means the server
// throws them.
type RollRequest struct {
	Dice []int `json:"dice,omitempty"`
}

// MoveRequest is the request body for validating or playing a sequence.
// Moves may be given as notation ("bar/20 12/6") or as JSON pairs.
type MoveRequest struct {
	Player   string          `json:"player"`             // "X" or "O"
	Notation string          `json:"notation,omitempty"` // e.g. "8/5 6/5"
	Moves    engine.Sequence `json:"moves,omitempty"`    // e.g. [["8","5"],["6","5"]]
}

// SelfPlayRequest is the request body for a self-play batch.
type SelfPlayRequest struct {
	Games    int    `json:"games,omitempty"`     // Number of games (default 100)
	Workers  int    `json:"workers,omitempty"`   // Parallel workers (0 = GOMAXPROCS)
	Seed     int64  `json:"seed,omitempty"`      // Seed (0 = random)
	MaxTurns int    `json:"max_turns,omitempty"` // Ply cap per game
	X        string `json:"x,omitempty"`         // Policy for X
	O        string `json:"o,omitempty"`         // Policy for O
}

// ============================================================================
// Response Types
// ============================================================================

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Ready   bool       `json:"ready"`
	Games   int        `json:"games"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// GameResponse describes a game session.
type GameResponse struct {
	ID   string      `json:"id"`
	View engine.View `json:"view"`
}

// RollResponse is returned by the roll endpoints.
type RollResponse struct {
	Player engine.Player `json:"player"`
	Dice   engine.Roll   `json:"dice"`
	View   engine.View   `json:"view"`
}

// LegalResponse lists the plays available to the player on roll.
type LegalResponse struct {
	Player    engine.Player     `json:"player"`
	Remaining []int             `json:"remaining"`
	Count     int               `json:"count"`
	Sequences []engine.Sequence `json:"sequences"`
	Notation  []string          `json:"notation"`
}

// ValidateResponse is the verdict on a submitted sequence.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// MoveResponse is returned after a sequence has been played.
type MoveResponse struct {
	Outcome *engine.TurnOutcome `json:"outcome"`
	View    engine.View         `json:"view"`
}

// SelfPlayResponse wraps a self-play result.
type SelfPlayResponse struct {
	Options policy.SelfPlayOptions `json:"options"`
	Result  *policy.SelfPlayResult `json:"result"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
