package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/is"

	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

const startID = "4HPwATDgc/ABMA"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxFastWorkers = 4
	cfg.MaxSlowWorkers = 1
	ts := httptest.NewServer(NewServer(cfg, "test-version").Handler())
	t.Cleanup(ts.Close)
	return ts
}

// do sends a JSON request and decodes the JSON response into out.
func do(t *testing.T, method, url string, body interface{}, out interface{}) int {
	is := is.New(t)
	is.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		is.NoErr(err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	is.NoErr(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		is.NoErr(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// createGame starts a game with X on roll with the given dice.
func createGame(t *testing.T, ts *httptest.Server, dice ...int) GameResponse {
	is := is.New(t)
	is.Helper()
	var g GameResponse
	status := do(t, "POST", ts.URL+"/api/games", CreateGameRequest{
		Position: startID, Player: "X", Dice: dice,
	}, &g)
	is.Equal(status, http.StatusCreated)
	is.True(g.ID != "")
	return g
}

func TestHealthHandler(t *testing.T) {
	is := is.New(t)
	h := NewHandlers(nil, "test-version")

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	resp := w.Result()
	is.Equal(resp.StatusCode, http.StatusOK)

	var health HealthResponse
	is.NoErr(json.NewDecoder(resp.Body).Decode(&health))
	is.Equal(health.Status, "ok")
	is.Equal(health.Version, "test-version")
	is.True(health.Ready)
	is.Equal(health.Games, 0)
	is.True(health.Pool == nil)
}

func TestHealthIncludesPool(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	createGame(t, ts)

	var health HealthResponse
	is.Equal(do(t, "GET", ts.URL+"/api/health", nil, &health), http.StatusOK)
	is.True(health.Pool != nil)
	is.Equal(health.Pool.MaxFast, 4)
	is.Equal(health.Games, 1)
}

func TestCreateGame(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	g := createGame(t, ts, 3, 1)
	is.Equal(g.View.Phase, engine.PhaseAwaitingMove)
	is.Equal(g.View.Player, engine.PlayerX)
	is.Equal(g.View.Remaining, []int{3, 1})
	is.Equal(g.View.PositionID, startID)
	is.Equal(g.View.PipCount, [2]int{167, 167})

	var fresh GameResponse
	is.Equal(do(t, "POST", ts.URL+"/api/games", nil, &fresh), http.StatusCreated)
	is.Equal(fresh.View.Phase, engine.PhaseAwaitingFirstRoll)

	var got GameResponse
	is.Equal(do(t, "GET", ts.URL+"/api/games/"+g.ID, nil, &got), http.StatusOK)
	is.Equal(got.View, g.View)
}

func TestCreateGameErrors(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  CreateGameRequest
		code string
	}{
		{"bad position", CreateGameRequest{Position: "not-an-id", Player: "X"}, "INVALID_POSITION"},
		{"bad player", CreateGameRequest{Player: "Z"}, "INVALID_REQUEST"},
		{"bad dice", CreateGameRequest{Player: "X", Dice: []int{7, 1}}, "INVALID_DICE"},
		{"one die", CreateGameRequest{Player: "X", Dice: []int{4}}, "INVALID_DICE"},
		{"dice without player", CreateGameRequest{Dice: []int{4, 2}}, "WRONG_PHASE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			var e ErrorResponse
			status := do(t, "POST", ts.URL+"/api/games", tt.req, &e)
			is.True(status >= 400)
			is.Equal(e.Code, tt.code)
		})
	}
}

func TestUnknownGame(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	var e ErrorResponse
	is.Equal(do(t, "GET", ts.URL+"/api/games/nope", nil, &e), http.StatusNotFound)
	is.Equal(e.Code, "NOT_FOUND")
}

func TestFirstRoll(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	var g GameResponse
	is.Equal(do(t, "POST", ts.URL+"/api/games", nil, &g), http.StatusCreated)

	var e ErrorResponse
	status := do(t, "POST", ts.URL+"/api/games/"+g.ID+"/first-roll", FirstRollRequest{X: 3, O: 3}, &e)
	is.Equal(status, http.StatusBadRequest)
	is.Equal(e.Code, "INVALID_DICE")

	var r RollResponse
	status = do(t, "POST", ts.URL+"/api/games/"+g.ID+"/first-roll", FirstRollRequest{X: 2, O: 5}, &r)
	is.Equal(status, http.StatusOK)
	is.Equal(r.Player, engine.PlayerO)
	is.Equal(r.Dice, engine.Roll{5, 2})
	is.Equal(r.View.Phase, engine.PhaseAwaitingMove)

	status = do(t, "POST", ts.URL+"/api/games/"+g.ID+"/first-roll", nil, &e)
	is.Equal(status, http.StatusConflict)
	is.Equal(e.Code, "WRONG_PHASE")
}

func TestRandomFirstRoll(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	var g GameResponse
	is.Equal(do(t, "POST", ts.URL+"/api/games", CreateGameRequest{Seed: 11}, &g), http.StatusCreated)
	var r RollResponse
	is.Equal(do(t, "POST", ts.URL+"/api/games/"+g.ID+"/first-roll", nil, &r), http.StatusOK)
	is.True(r.Player.Valid())
	is.True(!r.Dice.IsDouble())
}

func TestLegal(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	g := createGame(t, ts, 3, 1)

	var l LegalResponse
	is.Equal(do(t, "GET", ts.URL+"/api/games/"+g.ID+"/legal", nil, &l), http.StatusOK)
	want := engine.LegalSequences(engine.StartingPosition(), engine.PlayerX, engine.Roll{3, 1})
	is.Equal(l.Count, len(want))
	is.Equal(len(l.Notation), l.Count)
	is.True(slices.Contains(l.Notation, "7/4 5/4"))
	is.Equal(l.Player, engine.PlayerX)

	noDice := createGame(t, ts)
	var e ErrorResponse
	is.Equal(do(t, "GET", ts.URL+"/api/games/"+noDice.ID+"/legal", nil, &e), http.StatusConflict)
	is.Equal(e.Code, "NO_DICE")
}

func TestValidate(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	g := createGame(t, ts, 3, 1)
	url := ts.URL + "/api/games/" + g.ID + "/validate"

	tests := []struct {
		name  string
		req   MoveRequest
		valid bool
		code  string
	}{
		{"point making", MoveRequest{Player: "X", Notation: "7/4 5/4"}, true, ""},
		{"json pairs", MoveRequest{Player: "X", Moves: engine.Sequence{
			engine.Move(engine.At(7), engine.At(4)), engine.Move(engine.At(5), engine.At(4)),
		}}, true, ""},
		{"wrong player", MoveRequest{Player: "O", Notation: "0/3 0/1"}, false, "NOT_YOUR_TURN"},
		{"one die only", MoveRequest{Player: "X", Notation: "7/4"}, false, "SUBOPTIMAL_PLAY"},
		{"blocked", MoveRequest{Player: "X", Notation: "12/11 23/20"}, false, "ILLEGAL_MOVE"},
		{"wrong direction", MoveRequest{Player: "X", Notation: "5/8 5/6"}, false, "ILLEGAL_MOVE"},
		{"refused pass", MoveRequest{Player: "X", Notation: "pass"}, false, "SUBOPTIMAL_PLAY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			var v ValidateResponse
			is.Equal(do(t, "POST", url, tt.req, &v), http.StatusOK)
			is.Equal(v.Valid, tt.valid)
			is.Equal(v.Code, tt.code)
		})
	}

	var e ErrorResponse
	status := do(t, "POST", url, MoveRequest{Player: "X", Notation: "7-4"}, &e)
	is.Equal(status, http.StatusBadRequest)
	is.Equal(e.Code, "MALFORMED_MOVE")

	var got GameResponse
	do(t, "GET", ts.URL+"/api/games/"+g.ID, nil, &got)
	is.Equal(got.View, g.View)
}

func TestMoveAndTurnFlow(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	g := createGame(t, ts, 3, 1)
	base := ts.URL + "/api/games/" + g.ID

	var e ErrorResponse
	is.Equal(do(t, "POST", base+"/move", MoveRequest{Player: "X", Notation: "7/4"}, &e), http.StatusUnprocessableEntity)
	is.Equal(e.Code, "SUBOPTIMAL_PLAY")

	var m MoveResponse
	is.Equal(do(t, "POST", base+"/move", MoveRequest{Player: "X", Notation: "7/4 5/4"}, &m), http.StatusOK)
	is.True(m.Outcome != nil)
	is.Equal(m.Outcome.Player, engine.PlayerX)
	is.Equal(m.Outcome.Next, engine.PlayerO)
	is.True(!m.Outcome.Continues)
	is.Equal(m.View.Phase, engine.PhaseAwaitingRoll)
	is.Equal(m.View.Player, engine.PlayerO)
	is.Equal(m.View.PipCount[0], 163)

	is.Equal(do(t, "POST", base+"/move", MoveRequest{Player: "O", Notation: "0/6"}, &e), http.StatusConflict)
	is.Equal(e.Code, "NO_DICE")

	var r RollResponse
	is.Equal(do(t, "POST", base+"/roll", RollRequest{Dice: []int{5, 6}}, &r), http.StatusOK)
	is.Equal(r.Player, engine.PlayerO)
	is.Equal(r.Dice, engine.Roll{6, 5})

	is.Equal(do(t, "POST", base+"/roll", nil, &e), http.StatusConflict)
	is.Equal(e.Code, "WRONG_PHASE")

	is.Equal(do(t, "POST", base+"/move", MoveRequest{Player: "O", Notation: "0/6 6/11"}, &m), http.StatusOK)
	is.Equal(m.View.Player, engine.PlayerX)
}

func TestDeleteGame(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	g := createGame(t, ts)
	is.Equal(do(t, "DELETE", ts.URL+"/api/games/"+g.ID, nil, nil), http.StatusNoContent)
	var e ErrorResponse
	is.Equal(do(t, "DELETE", ts.URL+"/api/games/"+g.ID, nil, &e), http.StatusNotFound)
}

func TestSelfPlayHandler(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	var sp SelfPlayResponse
	status := do(t, "POST", ts.URL+"/api/selfplay", SelfPlayRequest{Games: 4, Workers: 2, Seed: 7}, &sp)
	is.Equal(status, http.StatusOK)
	is.True(sp.Result != nil)
	is.Equal(sp.Result.Games, 4)
	is.Equal(sp.Result.XWins+sp.Result.OWins+sp.Result.Truncated, 4)
	is.Equal(sp.Options.Seed, int64(7))

	var e ErrorResponse
	status = do(t, "POST", ts.URL+"/api/selfplay", SelfPlayRequest{X: "oracle"}, &e)
	is.Equal(status, http.StatusBadRequest)
	is.Equal(e.Code, "UNKNOWN_POLICY")
}

func TestSelfPlaySSE(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/selfplay/stream?games=3&workers=1&seed=5")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	is.NoErr(err)
	text := string(body)
	is.Equal(strings.Count(text, "event: progress"), 3)
	is.True(strings.Contains(text, "event: result"))
	is.True(strings.HasSuffix(text, "event: done\n\n"))
}

func TestWebSocket(t *testing.T) {
	is := is.New(t)
	ts := newTestServer(t)
	g := createGame(t, ts, 3, 1)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	is.NoErr(err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	send := func(msg WSMessage) map[string]interface{} {
		is.NoErr(conn.WriteJSON(msg))
		var resp map[string]interface{}
		is.NoErr(conn.ReadJSON(&resp))
		is.Equal(resp["id"], msg.ID)
		return resp
	}

	is.Equal(send(WSMessage{Type: "ping", ID: "1"})["type"], "pong")

	resp := send(WSMessage{Type: "view", ID: "2", Game: g.ID})
	is.Equal(resp["type"], "result")

	resp = send(WSMessage{Type: "legal", ID: "3", Game: g.ID})
	is.Equal(resp["type"], "result")
	payload := resp["payload"].(map[string]interface{})
	is.True(payload["count"].(float64) > 0.0)

	resp = send(WSMessage{Type: "move", ID: "4", Game: g.ID,
		Payload: json.RawMessage(`{"player":"X","notation":"7/4"}`)})
	is.Equal(resp["type"], "error")
	is.Equal(resp["code"], "SUBOPTIMAL_PLAY")

	resp = send(WSMessage{Type: "move", ID: "5", Game: g.ID,
		Payload: json.RawMessage(`{"player":"X","moves":[["7","4"],["5","4"]]}`)})
	is.Equal(resp["type"], "result")

	resp = send(WSMessage{Type: "roll", ID: "6", Game: g.ID})
	is.Equal(resp["type"], "result")

	resp = send(WSMessage{Type: "view", ID: "7", Game: "missing"})
	is.Equal(resp["code"], "NOT_FOUND")

	resp = send(WSMessage{Type: "cube", ID: "8", Game: g.ID})
	is.Equal(resp["type"], "error")
}

func TestSelfPlayOptionsClamped(t *testing.T) {
	is := is.New(t)
	opts := selfPlayOptions(SelfPlayRequest{Games: 1 << 30, Workers: 1 << 20, MaxTurns: 1 << 30})
	is.Equal(opts.Games, MaxSelfPlayGames)
	is.Equal(opts.Workers, MaxSelfPlayWorkers)
	is.Equal(opts.MaxTurns, MaxSelfPlayTurns)

	def := policy.DefaultSelfPlayOptions()
	opts = selfPlayOptions(SelfPlayRequest{Games: -5})
	is.Equal(opts.Games, def.Games)
	is.Equal(opts.MaxTurns, def.MaxTurns)

	opts = selfPlayOptions(SelfPlayRequest{Games: 12, X: "random"})
	is.Equal(opts.Games, 12)
	is.Equal(opts.X, "random")
}
