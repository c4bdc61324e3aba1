package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

// Handlers holds the HTTP handlers and the hosted games.
type Handlers struct {
	store   *SessionStore
	version string
	pool    *WorkerPool
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(store *SessionStore, version string) *Handlers {
	return NewHandlersWithPool(store, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(store *SessionStore, version string, pool *WorkerPool) *Handlers {
	if store == nil {
		store = NewSessionStore(0)
	}
	return &Handlers{
		store:   store,
		version: version,
		pool:    pool,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// errorKind maps an error to its HTTP status and code string.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrMalformedMove):
		return http.StatusBadRequest, "MALFORMED_MOVE"
	case errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusConflict, "NOT_YOUR_TURN"
	case errors.Is(err, engine.ErrNoDiceOutstanding):
		return http.StatusConflict, "NO_DICE"
	case errors.Is(err, engine.ErrIllegalSubMove):
		return http.StatusUnprocessableEntity, "ILLEGAL_MOVE"
	case errors.Is(err, engine.ErrSuboptimalPlay):
		return http.StatusUnprocessableEntity, "SUBOPTIMAL_PLAY"
	case errors.Is(err, engine.ErrGameOver):
		return http.StatusConflict, "GAME_OVER"
	case errors.Is(err, engine.ErrWrongPhase):
		return http.StatusConflict, "WRONG_PHASE"
	case errors.Is(err, engine.ErrInvalidPosition):
		return http.StatusBadRequest, "INVALID_POSITION"
	case errors.Is(err, engine.ErrInvalidDice):
		return http.StatusBadRequest, "INVALID_DICE"
	case errors.Is(err, ErrGameNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrTooManyGames), errors.Is(err, ErrPoolBusy):
		return http.StatusServiceUnavailable, "BUSY"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeEngineError writes err with the status and code of its kind.
func writeEngineError(w http.ResponseWriter, err error) {
	status, code := errorKind(err)
	writeError(w, status, err.Error(), code)
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   true,
		Games:   h.store.Len(),
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// newGame builds a game from a create request.
func newGame(req CreateGameRequest) (*engine.Game, error) {
	var opts engine.GameOptions
	if req.Seed != 0 {
		opts.Roller = engine.NewRandRoller(req.Seed)
	}
	player, err := engine.ParsePlayer(req.Player)
	if err != nil {
		return nil, err
	}
	opts.Player = player
	if req.Position != "" {
		pos, err := engine.PositionFromID(req.Position, player)
		if err != nil {
			return nil, err
		}
		opts.Position = &pos
	}
	if len(req.Dice) > 0 {
		if len(req.Dice) != 2 {
			return nil, engine.ErrInvalidDice
		}
		roll, err := engine.NewRoll(req.Dice[0], req.Dice[1])
		if err != nil {
			return nil, err
		}
		opts.Roll = &roll
	}
	return engine.NewGame(opts)
}

// CreateGame handles POST /api/games.
func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "INVALID_JSON")
		return
	}
	g, err := newGame(req)
	if err != nil {
		status, code := errorKind(err)
		if code == "INTERNAL_ERROR" {
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		}
		writeError(w, status, err.Error(), code)
		return
	}
	s, err := h.store.Add(g)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Info().Str("game", s.ID).Str("phase", g.Phase().String()).Msg("game created")
	writeJSON(w, http.StatusCreated, GameResponse{ID: s.ID, View: s.Snapshot()})
}

// session resolves the {id} path value or writes a 404.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return nil, false
	}
	return s, true
}

// GetGame handles GET /api/games/{id}.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, GameResponse{ID: s.ID, View: s.Snapshot()})
}

// DeleteGame handles DELETE /api/games/{id}.
func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(r.PathValue("id")) {
		writeEngineError(w, ErrGameNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// firstRoll performs the opening roll of a session.
func firstRoll(s *Session, req FirstRollRequest) (RollResponse, error) {
	var resp RollResponse
	err := s.With(func(g *engine.Game) error {
		var err error
		if req.X == 0 && req.O == 0 {
			resp.Player, resp.Dice, err = g.RollFirst()
		} else {
			resp.Player, resp.Dice, err = g.SetFirstRoll(req.X, req.O)
		}
		if err != nil {
			return err
		}
		resp.View = g.Snapshot()
		return nil
	})
	return resp, err
}

// FirstRoll handles POST /api/games/{id}/first-roll.
func (h *Handlers) FirstRoll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req FirstRollRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "INVALID_JSON")
		return
	}
	var resp RollResponse
	err := h.pool.RunFast(r.Context(), func() (err error) {
		resp, err = firstRoll(s, req)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// roll throws or installs the dice for the player on roll.
func roll(s *Session, dice []int) (RollResponse, error) {
	var resp RollResponse
	err := s.With(func(g *engine.Game) error {
		var err error
		switch len(dice) {
		case 0:
			resp.Dice, err = g.Roll()
		case 2:
			resp.Dice, err = g.SetRoll(dice[0], dice[1])
		default:
			err = engine.ErrInvalidDice
		}
		if err != nil {
			return err
		}
		resp.Player = g.CurrentPlayer()
		resp.View = g.Snapshot()
		return nil
	})
	return resp, err
}

// Roll handles POST /api/games/{id}/roll.
func (h *Handlers) Roll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req RollRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "INVALID_JSON")
		return
	}
	var resp RollResponse
	err := h.pool.RunFast(r.Context(), func() (err error) {
		resp, err = roll(s, req.Dice)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// legal lists the plays of the player on roll. Generation runs on a copy
// taken under the session lock so concurrent reads never block play.
func legal(s *Session) (LegalResponse, error) {
	var (
		pos    engine.Position
		player engine.Player
		dice   engine.DiceState
	)
	err := s.With(func(g *engine.Game) error {
		if g.Winner() != engine.NoPlayer {
			return engine.ErrGameOver
		}
		if g.Phase() != engine.PhaseAwaitingMove {
			return engine.ErrNoDiceOutstanding
		}
		pos, player, dice = g.Position(), g.CurrentPlayer(), g.Dice()
		return nil
	})
	if err != nil {
		return LegalResponse{}, err
	}

	seqs := engine.PlayableSequences(pos, player, dice.Roll, dice.Remaining())
	return LegalResponse{
		Player:    player,
		Remaining: dice.Remaining(),
		Count:     len(seqs),
		Sequences: seqs,
		Notation:  lo.Map(seqs, func(seq engine.Sequence, _ int) string { return seq.String() }),
	}, nil
}

// Legal handles GET /api/games/{id}/legal.
func (h *Handlers) Legal(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var resp LegalResponse
	err := h.pool.RunFast(r.Context(), func() (err error) {
		resp, err = legal(s)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseMove extracts the player and sequence of a move request.
func parseMove(req MoveRequest) (engine.Player, engine.Sequence, error) {
	player, err := engine.ParsePlayer(req.Player)
	if err != nil {
		return engine.NoPlayer, nil, fmt.Errorf("%w: %v", engine.ErrMalformedMove, err)
	}
	if req.Notation != "" {
		seq, err := engine.ParseSequence(req.Notation)
		return player, seq, err
	}
	return player, req.Moves, nil
}

// readMove decodes a move request, writing the error response on failure.
func readMove(w http.ResponseWriter, r *http.Request) (engine.Player, engine.Sequence, bool) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "MALFORMED_MOVE")
		return engine.NoPlayer, nil, false
	}
	player, seq, err := parseMove(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "MALFORMED_MOVE")
		return engine.NoPlayer, nil, false
	}
	return player, seq, true
}

func validate(s *Session, player engine.Player, seq engine.Sequence) ValidateResponse {
	var verr error
	s.With(func(g *engine.Game) error {
		verr = g.Validate(player, seq)
		return nil
	})
	if verr != nil {
		_, code := errorKind(verr)
		return ValidateResponse{Valid: false, Error: verr.Error(), Code: code}
	}
	return ValidateResponse{Valid: true}
}

// Validate handles POST /api/games/{id}/validate. The verdict is always
// reported with 200; the game is never modified.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	player, seq, ok := readMove(w, r)
	if !ok {
		return
	}
	var resp ValidateResponse
	err := h.pool.RunFast(r.Context(), func() error {
		resp = validate(s, player, seq)
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func move(s *Session, player engine.Player, seq engine.Sequence) (MoveResponse, error) {
	var resp MoveResponse
	err := s.With(func(g *engine.Game) error {
		out, err := g.Apply(player, seq)
		if err != nil {
			return err
		}
		resp.Outcome = out
		resp.View = g.Snapshot()
		return nil
	})
	return resp, err
}

// Move handles POST /api/games/{id}/move.
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	player, seq, ok := readMove(w, r)
	if !ok {
		return
	}
	var resp MoveResponse
	err := h.pool.RunFast(r.Context(), func() (err error) {
		resp, err = move(s, player, seq)
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("game", s.ID).Str("player", player.String()).
			Str("moves", seq.String()).Msg("move rejected")
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Limits on a single self-play request. Larger values are clamped.
const (
	MaxSelfPlayGames   = 10000
	MaxSelfPlayWorkers = 64
	MaxSelfPlayTurns   = 5000
)

// selfPlayOptions merges a request over the defaults.
func selfPlayOptions(req SelfPlayRequest) policy.SelfPlayOptions {
	opts := policy.DefaultSelfPlayOptions()
	if req.Games > 0 {
		opts.Games = min(req.Games, MaxSelfPlayGames)
	}
	if req.Workers > 0 {
		opts.Workers = min(req.Workers, MaxSelfPlayWorkers)
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if req.MaxTurns > 0 {
		opts.MaxTurns = min(req.MaxTurns, MaxSelfPlayTurns)
	}
	if req.X != "" {
		opts.X = req.X
	}
	if req.O != "" {
		opts.O = req.O
	}
	return opts
}

// SelfPlay handles POST /api/selfplay.
func (h *Handlers) SelfPlay(w http.ResponseWriter, r *http.Request) {
	var req SelfPlayRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "INVALID_JSON")
		return
	}
	opts := selfPlayOptions(req)
	for _, name := range []string{opts.X, opts.O} {
		if _, err := policy.ByName(name, 0); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_POLICY")
			return
		}
	}

	var result *policy.SelfPlayResult
	err := h.pool.TryRunSlow(func() (err error) {
		result, err = policy.SelfPlay(log.Logger.WithContext(r.Context()), opts, nil)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SelfPlayResponse{Options: opts, Result: result})
}
