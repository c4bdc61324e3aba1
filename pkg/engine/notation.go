package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// EndpointKind tells the three kinds of move endpoint apart.
type EndpointKind uint8

const (
	KindPoint EndpointKind = iota
	KindBar
	KindOff
)

// Endpoint is where a checker moves from or to: a point, the bar or off the
// board. Bar is only valid as a source and Off only as a destination.
type Endpoint struct {
	Kind EndpointKind
	Pip  int
}

var (
	// Bar is the bar endpoint
	Bar = Endpoint{Kind: KindBar}
	// Off is the borne-off endpoint
	Off = Endpoint{Kind: KindOff}
)

// At returns the endpoint for a point index.
func At(pip int) Endpoint {
	return Endpoint{Kind: KindPoint, Pip: pip}
}

func (e Endpoint) IsBar() bool   { return e.Kind == KindBar }
func (e Endpoint) IsOff() bool   { return e.Kind == KindOff }
func (e Endpoint) IsPoint() bool { return e.Kind == KindPoint }

func (e Endpoint) String() string {
	switch e.Kind {
	case KindBar:
		return "bar"
	case KindOff:
		return "off"
	}
	return strconv.Itoa(e.Pip)
}

// ParseEndpoint parses "bar", "off" (any case) or a point index 0-23.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "bar":
		return Bar, nil
	case "off":
		return Off, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= NumPoints {
		return Endpoint{}, fmt.Errorf("%w: bad endpoint %q", ErrMalformedMove, s)
	}
	return At(n), nil
}

// MarshalText uses the wire spelling: "BAR", "OFF" or the point index.
func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(strings.ToUpper(e.String())), nil
}

func (e *Endpoint) UnmarshalText(b []byte) error {
	v, err := ParseEndpoint(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// SubMove moves a single checker. Die is the die value the move consumes; it
// is filled in by the generator and the validator and is not part of the
// move's identity.
type SubMove struct {
	From Endpoint
	To   Endpoint
	Die  int
}

// Move builds an untagged sub-move.
func Move(from, to Endpoint) SubMove {
	return SubMove{From: from, To: to}
}

func (m SubMove) String() string {
	return m.From.String() + "/" + m.To.String()
}

// MarshalJSON encodes the move as a pair such as ["BAR","20"].
func (m SubMove) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Endpoint{m.From, m.To})
}

// UnmarshalJSON accepts a two element array of strings or point numbers.
func (m *SubMove) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil || len(raw) != 2 {
		return fmt.Errorf("%w: expected [from, to], got %s", ErrMalformedMove, b)
	}
	var ends [2]Endpoint
	for i, r := range raw {
		var n int
		if err := json.Unmarshal(r, &n); err == nil {
			ends[i] = At(n)
			if n < 0 || n >= NumPoints {
				return fmt.Errorf("%w: point %d out of range", ErrMalformedMove, n)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return fmt.Errorf("%w: bad endpoint %s", ErrMalformedMove, r)
		}
		e, err := ParseEndpoint(s)
		if err != nil {
			return err
		}
		ends[i] = e
	}
	*m = SubMove{From: ends[0], To: ends[1]}
	return nil
}

// Sequence is an ordered list of sub-moves played in one turn.
type Sequence []SubMove

// Key identifies a sequence by its (from, to) pairs, ignoring die tags.
func (s Sequence) Key() string {
	return strings.Join(lo.Map(s, func(m SubMove, _ int) string {
		return m.String()
	}), " ")
}

func (s Sequence) String() string {
	if len(s) == 0 {
		return "pass"
	}
	return s.Key()
}

// Dice lists the die tags of the sequence.
func (s Sequence) Dice() []int {
	return lo.Map(s, func(m SubMove, _ int) int { return m.Die })
}

// SameMoves reports whether both sequences move the same checkers the same
// way, in the same order.
func (s Sequence) SameMoves(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].From != o[i].From || s[i].To != o[i].To {
			return false
		}
	}
	return true
}

// ParseSequence parses moves such as "bar/20 12/6 3/off". Moves may be
// separated by spaces or commas. An empty string or "pass" is the empty
// sequence.
func ParseSequence(s string) (Sequence, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) == 1 && strings.EqualFold(fields[0], "pass") {
		return Sequence{}, nil
	}
	seq := make(Sequence, 0, len(fields))
	for _, f := range fields {
		from, to, ok := strings.Cut(f, "/")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not from/to", ErrMalformedMove, f)
		}
		a, err := ParseEndpoint(from)
		if err != nil {
			return nil, err
		}
		b, err := ParseEndpoint(to)
		if err != nil {
			return nil, err
		}
		seq = append(seq, Move(a, b))
	}
	return seq, nil
}
