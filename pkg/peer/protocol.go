// Package peer plays one backgammon game between two engines connected over
// a WebSocket. Each side keeps its own authoritative game, rolls its own
// dice, and validates every action the other side announces before applying
// it.
//
// Messages are JSON objects with a "type" field:
//
//	identity                host -> joiner: the side the joiner plays
//	first_roll_exchange     one die each; ties are re-rolled
//	action_roll_dice        the dice the sender threw for its turn
//	action_submit_moves     the sequence the sender played
//	action_pass_turn        the sender had no legal play
//	game_over_notification  the sender bore off its last checker
//	chat                    free text
//
// Players are numbered 0 (X) and 1 (O) on the wire. Sub-moves are string
// pairs such as ["BAR","20"] or ["5","OFF"].
package peer

import (
	"encoding/json"
	"fmt"

	"github.com/yourusername/gammon/pkg/engine"
)

// DefaultPort is the port a host listens on when none is configured.
const DefaultPort = 65433

// MessageType names a protocol message.
type MessageType string

const (
	TypeIdentity  MessageType = "identity"
	TypeFirstRoll MessageType = "first_roll_exchange"
	TypeRollDice  MessageType = "action_roll_dice"
	TypeSubmit    MessageType = "action_submit_moves"
	TypePass      MessageType = "action_pass_turn"
	TypeGameOver  MessageType = "game_over_notification"
	TypeChat      MessageType = "chat"
)

// ID is a player as numbered on the wire.
type ID engine.Player

// Player returns the engine player.
func (id ID) Player() engine.Player { return engine.Player(id) }

func (id ID) MarshalJSON() ([]byte, error) {
	p := engine.Player(id)
	if !p.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(int(p) - 1)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	p := engine.Player(n + 1)
	if !p.Valid() {
		return fmt.Errorf("player id %d out of range", n)
	}
	*id = ID(p)
	return nil
}

// Message is one protocol message. Only the fields of its type are set.
type Message struct {
	Type MessageType `json:"type"`

	// identity
	AssignedPlayerID ID     `json:"assigned_player_id,omitempty"`
	AssignedSymbol   string `json:"assigned_symbol,omitempty"`

	// first_roll_exchange, action_*
	PlayerID   ID              `json:"player_id,omitempty"`
	Roll       int             `json:"roll,omitempty"`
	RolledDice []int           `json:"rolled_dice,omitempty"`
	Moves      engine.Sequence `json:"moves,omitempty"`

	// game_over_notification
	WinnerID ID `json:"winner_id,omitempty"`

	// chat
	SenderID    ID     `json:"sender_id,omitempty"`
	MessageText string `json:"message_text,omitempty"`
}

func identity(assigned engine.Player) Message {
	return Message{Type: TypeIdentity, AssignedPlayerID: ID(assigned), AssignedSymbol: assigned.String()}
}

func firstRoll(p engine.Player, die int) Message {
	return Message{Type: TypeFirstRoll, PlayerID: ID(p), Roll: die}
}

func rollDice(p engine.Player, r engine.Roll) Message {
	return Message{Type: TypeRollDice, PlayerID: ID(p), RolledDice: []int{r[0], r[1]}}
}

func submit(p engine.Player, seq engine.Sequence) Message {
	return Message{Type: TypeSubmit, PlayerID: ID(p), Moves: seq}
}

func pass(p engine.Player) Message {
	return Message{Type: TypePass, PlayerID: ID(p)}
}

func gameOver(winner engine.Player) Message {
	return Message{Type: TypeGameOver, WinnerID: ID(winner)}
}

func chat(p engine.Player, text string) Message {
	return Message{Type: TypeChat, SenderID: ID(p), MessageText: text}
}
