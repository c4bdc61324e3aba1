package peer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/is"

	"github.com/yourusername/gammon/pkg/engine"
	"github.com/yourusername/gammon/pkg/policy"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return ln, "ws://" + ln.Addr().String() + "/"
}

func TestMessageWireFormat(t *testing.T) {
	is := is.New(t)

	b, err := json.Marshal(submit(engine.PlayerO, engine.Sequence{
		engine.Move(engine.Bar, engine.At(20)),
		engine.Move(engine.At(5), engine.Off),
	}))
	is.NoErr(err)
	is.Equal(string(b), `{"type":"action_submit_moves","player_id":1,"moves":[["BAR","20"],["5","OFF"]]}`)

	b, err = json.Marshal(identity(engine.PlayerO))
	is.NoErr(err)
	is.Equal(string(b), `{"type":"identity","assigned_player_id":1,"assigned_symbol":"O"}`)

	b, err = json.Marshal(firstRoll(engine.PlayerX, 4))
	is.NoErr(err)
	is.Equal(string(b), `{"type":"first_roll_exchange","player_id":0,"roll":4}`)

	var m Message
	is.NoErr(json.Unmarshal([]byte(`{"type":"action_roll_dice","player_id":0,"rolled_dice":[3,5]}`), &m))
	is.Equal(m.Type, TypeRollDice)
	is.Equal(m.PlayerID.Player(), engine.PlayerX)
	is.Equal(m.RolledDice, []int{3, 5})

	is.NoErr(json.Unmarshal([]byte(`{"type":"game_over_notification","winner_id":1}`), &m))
	is.Equal(m.WinnerID.Player(), engine.PlayerO)

	is.True(json.Unmarshal([]byte(`{"type":"chat","sender_id":7}`), &m) != nil)
}

func TestHostAndJoinPlayToTheEnd(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ln, url := listen(t)
	type outcome struct {
		res *Result
		err error
	}
	hosted := make(chan outcome, 1)
	go func() {
		res, err := Host(ctx, ln, Options{
			Policy: policy.NewHeuristic(),
			Roller: engine.NewRandRoller(1),
		})
		hosted <- outcome{res, err}
	}()

	joined, err := Join(ctx, url, Options{
		Policy: policy.NewRandom(2),
		Roller: engine.NewRandRoller(2),
	})
	is.NoErr(err)
	host := <-hosted
	is.NoErr(host.err)

	is.Equal(host.res.Me, engine.PlayerX)
	is.Equal(joined.Me, engine.PlayerO)
	is.True(host.res.Winner.Valid())
	is.Equal(host.res.Winner, joined.Winner)
	is.Equal(host.res.Position, joined.Position)
	is.Equal(host.res.Plies, joined.Plies)
	is.Equal(host.res.Rejected, 0)
	is.Equal(joined.Rejected, 0)
	is.Equal(host.res.Position.OffCount(host.res.Winner), engine.NumCheckers)
}

// readType reads messages until one of type want arrives.
func readType(t *testing.T, conn *websocket.Conn, want MessageType) Message {
	t.Helper()
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if m.Type == want {
			return m
		}
	}
}

// A scripted opponent sends an illegal play, then a legal one. The host
// ignores the first and answers the second with its own turn.
func TestHostIgnoresInvalidMoves(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, url := listen(t)
	type outcome struct {
		res *Result
		err error
	}
	hosted := make(chan outcome, 1)
	go func() {
		res, err := Host(ctx, ln, Options{
			Policy: policy.NewHeuristic(),
			Roller: engine.NewFixedRoller(1, 3, 2),
		})
		hosted <- outcome{res, err}
	}()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	is.NoErr(err)

	id := readType(t, conn, TypeIdentity)
	is.Equal(id.AssignedPlayerID.Player(), engine.PlayerO)
	is.Equal(readType(t, conn, TypeFirstRoll).Roll, 1)

	// O throws 6 against X's 1 and opens with 6-1.
	is.NoErr(conn.WriteJSON(firstRoll(engine.PlayerO, 6)))
	bogus, _ := engine.ParseSequence("0/23")
	is.NoErr(conn.WriteJSON(submit(engine.PlayerO, bogus)))
	legal, _ := engine.ParseSequence("11/17 16/17")
	is.NoErr(conn.WriteJSON(submit(engine.PlayerO, legal)))

	roll := readType(t, conn, TypeRollDice)
	is.Equal(roll.PlayerID.Player(), engine.PlayerX)
	is.Equal(roll.RolledDice, []int{3, 2})
	played := readType(t, conn, TypeSubmit)
	is.Equal(len(played.Moves), 2)
	conn.Close()

	host := <-hosted
	is.True(errors.Is(host.err, ErrDisconnected))
	is.Equal(host.res.Rejected, 1)
	is.Equal(host.res.Plies, 2)
	is.Equal(host.res.Winner, engine.NoPlayer)
}

func TestChat(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, url := listen(t)
	got := make(chan string, 1)
	go Host(ctx, ln, Options{
		OnChat: func(from engine.Player, text string) {
			if from == engine.PlayerO {
				got <- text
			}
		},
	})

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	is.NoErr(err)
	defer conn.Close()
	readType(t, conn, TypeIdentity)
	is.NoErr(conn.WriteJSON(chat(engine.PlayerO, "good luck")))

	select {
	case text := <-got:
		is.Equal(text, "good luck")
	case <-ctx.Done():
		t.Fatal("chat not delivered")
	}
}

func TestJoinerChatsWhileIdentityArrives(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, url := listen(t)
	got := make(chan string, 8)
	go Host(ctx, ln, Options{
		OnChat: func(_ engine.Player, text string) {
			got <- text
		},
	})

	_, err := Join(ctx, url, Options{
		OnStart: func(s *Session) {
			go func() {
				for range 3 {
					s.Chat("hello")
					_ = s.Player()
				}
			}()
		},
	})
	is.NoErr(err)

	select {
	case text := <-got:
		is.Equal(text, "hello")
	case <-ctx.Done():
		t.Fatal("chat not delivered")
	}
}

func TestHostCancelledBeforeOpponent(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	ln, _ := listen(t)
	cancel()
	_, err := Host(ctx, ln, Options{})
	is.True(errors.Is(err, context.Canceled))
}
