package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

// ErrDisconnected is returned when the connection drops before the game is
// decided.
var ErrDisconnected = errors.New("opponent disconnected")

// Options configures the local side of a peer game.
type Options struct {
	// Policy picks the local plays. A random policy is used when nil.
	Policy policy.Policy
	// Roller throws the local dice. engine.DefaultRoller is used when nil.
	Roller engine.Roller
	// OnChat receives chat text from the opponent.
	OnChat func(from engine.Player, text string)
	// OnMessage sees every message received, before it is handled.
	OnMessage func(Message)
	// OnStart is called with the session once the opponent is connected,
	// before any message is read. The session may be used from other
	// goroutines, for example to Chat, until the game ends.
	OnStart func(*Session)
}

// Result is the state of a finished (or abandoned) session.
type Result struct {
	Me       engine.Player   `json:"me"`
	Winner   engine.Player   `json:"winner,omitempty"`
	Plies    int             `json:"plies"`
	Position engine.Position `json:"position"`
	// Rejected counts opponent actions that failed local validation and
	// were ignored.
	Rejected int `json:"rejected"`
}

// Session is one side of a peer game.
type Session struct {
	conn *websocket.Conn
	opts Options
	log  *zerolog.Logger

	mu       sync.Mutex // guards writes of me and reads outside the run loop
	me       engine.Player
	game     *engine.Game
	myDie    int
	theirDie int
	rejected int
	finished bool
	writeMu  sync.Mutex
}

func newSession(ctx context.Context, conn *websocket.Conn, me engine.Player, opts Options) *Session {
	if opts.Policy == nil {
		opts.Policy = policy.NewRandom(0)
	}
	if opts.Roller == nil {
		opts.Roller = engine.DefaultRoller
	}
	g, _ := engine.NewGame(engine.GameOptions{Roller: opts.Roller})
	return &Session{
		conn: conn,
		opts: opts,
		log:  zerolog.Ctx(ctx),
		me:   me,
		game: g,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Listen opens a listener for Host on addr ("host:port").
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Host waits on ln for one opponent, plays X against it and returns when
// the game is decided, the opponent leaves or ctx is done. ln is closed.
func Host(ctx context.Context, ln net.Listener, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	conns := make(chan *websocket.Conn, 1)
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				logger.Warn().Err(err).Msg("websocket upgrade failed")
				return
			}
			select {
			case conns <- conn:
			default:
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "game in progress"))
				conn.Close()
			}
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(ln)
	logger.Info().Str("addr", ln.Addr().String()).Msg("hosting as X, waiting for opponent")

	var conn *websocket.Conn
	select {
	case conn = <-conns:
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
	// Hijacked connections survive Close.
	srv.Close()
	logger.Info().Str("from", conn.RemoteAddr().String()).Msg("opponent connected")

	s := newSession(ctx, conn, engine.PlayerX, opts)
	s.start()
	if err := s.send(identity(engine.PlayerO)); err != nil {
		conn.Close()
		return s.result(), err
	}
	if err := s.sendFirstRoll(); err != nil {
		conn.Close()
		return s.result(), err
	}
	return s.run(ctx)
}

// Join connects to the host at url (ws://host:port/) and plays the side the
// host assigns.
func Join(ctx context.Context, url string, opts Options) (*Result, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", url, err)
	}
	zerolog.Ctx(ctx).Info().Str("host", url).Msg("connected to host")
	s := newSession(ctx, conn, engine.NoPlayer, opts)
	s.start()
	return s.run(ctx)
}

func (s *Session) start() {
	if s.opts.OnStart != nil {
		s.opts.OnStart(s)
	}
}

// Player returns the local side, engine.NoPlayer until the host has
// assigned one.
func (s *Session) Player() engine.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.me
}

// Chat sends text to the opponent.
func (s *Session) Chat(text string) error {
	return s.send(chat(s.Player(), text))
}

func (s *Session) send(m Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(m)
}

func (s *Session) result() *Result {
	return &Result{
		Me:       s.Player(),
		Winner:   s.game.Winner(),
		Plies:    s.game.Plies(),
		Position: s.game.Position(),
		Rejected: s.rejected,
	}
}

// run reads and handles messages until the game ends.
func (s *Session) run(ctx context.Context) (*Result, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()
	defer s.conn.Close()

	for !s.finished {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return s.result(), ctx.Err()
			}
			if s.game.Winner() != engine.NoPlayer {
				return s.result(), nil
			}
			s.log.Warn().Err(err).Msg("connection lost")
			return s.result(), fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			s.log.Warn().Err(err).Bytes("data", data).Msg("invalid message")
			continue
		}
		if s.opts.OnMessage != nil {
			s.opts.OnMessage(m)
		}
		if err := s.handle(m); err != nil {
			return s.result(), err
		}
	}

	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over"),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.result(), nil
}

func (s *Session) opponent() engine.Player {
	return s.me.Opponent()
}

// handle processes one message. Only transport failures are returned;
// protocol violations by the opponent are logged and ignored.
func (s *Session) handle(m Message) error {
	from := m.PlayerID.Player()
	switch m.Type {
	case TypeIdentity:
		s.mu.Lock()
		s.me = m.AssignedPlayerID.Player()
		s.mu.Unlock()
		s.log.Info().Str("me", s.me.String()).Msg("identity received")
		return s.sendFirstRoll()

	case TypeFirstRoll:
		if from != s.opponent() {
			s.log.Warn().Str("from", from.String()).Msg("first roll from unexpected player")
			return nil
		}
		s.theirDie = m.Roll
		return s.decideFirstRoll()

	case TypeRollDice:
		if from != s.opponent() || len(m.RolledDice) != 2 {
			return s.reject(m, errors.New("unexpected roll"))
		}
		if _, err := s.game.SetRoll(m.RolledDice[0], m.RolledDice[1]); err != nil {
			return s.reject(m, err)
		}
		return nil

	case TypeSubmit, TypePass:
		if from != s.opponent() {
			return s.reject(m, engine.ErrNotYourTurn)
		}
		seq := m.Moves
		if m.Type == TypePass {
			seq = nil
		}
		out, err := s.game.Apply(from, seq)
		if err != nil {
			return s.reject(m, err)
		}
		s.log.Debug().Str("player", from.String()).Str("moves", out.Played.String()).Msg("opponent played")
		if out.GameOver() {
			return nil
		}
		return s.play()

	case TypeGameOver:
		winner := m.WinnerID.Player()
		if winner != s.game.Winner() {
			s.log.Warn().Str("claimed", winner.String()).Str("local", s.game.Winner().String()).
				Msg("game over claim disagrees with local game")
		}
		s.log.Info().Str("winner", winner.String()).Msg("game over")
		s.finished = true
		return nil

	case TypeChat:
		s.log.Info().Str("from", m.SenderID.Player().String()).Str("text", m.MessageText).Msg("chat")
		if s.opts.OnChat != nil {
			s.opts.OnChat(m.SenderID.Player(), m.MessageText)
		}
		return nil
	}
	s.log.Warn().Str("type", string(m.Type)).Msg("unknown message type")
	return nil
}

func (s *Session) reject(m Message, err error) error {
	s.rejected++
	s.log.Warn().Err(err).Str("type", string(m.Type)).Str("moves", m.Moves.String()).
		Msg("ignoring invalid opponent action")
	return nil
}

func (s *Session) sendFirstRoll() error {
	s.myDie = s.opts.Roller.Die()
	s.log.Debug().Int("die", s.myDie).Msg("first roll")
	return s.send(firstRoll(s.me, s.myDie))
}

// decideFirstRoll starts the game once both dice are known. On a tie both
// sides throw again.
func (s *Session) decideFirstRoll() error {
	if s.myDie == 0 || s.theirDie == 0 {
		return nil
	}
	if s.myDie == s.theirDie {
		s.log.Debug().Int("die", s.myDie).Msg("first roll tie")
		s.theirDie = 0
		return s.sendFirstRoll()
	}

	xDie, oDie := s.myDie, s.theirDie
	if s.me == engine.PlayerO {
		xDie, oDie = oDie, xDie
	}
	first, roll, err := s.game.SetFirstRoll(xDie, oDie)
	if err != nil {
		return s.reject(firstRoll(s.opponent(), s.theirDie), err)
	}
	s.log.Info().Str("first", first.String()).Str("roll", roll.String()).Msg("first roll decided")
	return s.play()
}

// play takes the local turn when it is ours: roll if needed, then play the
// policy's choice or pass.
func (s *Session) play() error {
	g := s.game
	if g.Winner() != engine.NoPlayer || g.CurrentPlayer() != s.me {
		return nil
	}
	if g.Phase() == engine.PhaseAwaitingRoll {
		roll, err := g.Roll()
		if err != nil {
			return err
		}
		if err := s.send(rollDice(s.me, roll)); err != nil {
			return err
		}
	}

	legal, err := g.LegalSequences()
	if err != nil {
		return err
	}
	if len(legal) == 0 {
		if _, err := g.Apply(s.me, nil); err != nil {
			return err
		}
		return s.send(pass(s.me))
	}

	seq := s.opts.Policy.Choose(g.Position(), s.me, legal)
	out, err := g.Apply(s.me, seq)
	if err != nil {
		return fmt.Errorf("local play %s: %w", seq, err)
	}
	if err := s.send(submit(s.me, out.Played)); err != nil {
		return err
	}
	if out.GameOver() {
		s.finished = true
		return s.send(gameOver(s.me))
	}
	return nil
}
