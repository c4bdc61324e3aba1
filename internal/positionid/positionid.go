// Package positionid encodes backgammon boards as GNU Backgammon position IDs.
//
// A position ID is a 14-character base64 string. The board is written as a
// bit string, player not on roll first: for each of the 25 slots of a side
// (24 points seen from that side's own perspective, then the bar) one 1-bit
// per checker followed by a 0-bit separator. The resulting 80 bits are packed
// little-endian into 10 bytes and base64 encoded.
package positionid

import (
	"errors"
	"fmt"
)

const (
	// PositionIDLength is the length of a position ID string
	PositionIDLength = 14
	// BarSlot is the slot index of the bar on a side
	BarSlot = 24
	// MaxCheckers is the number of checkers each side starts with
	MaxCheckers = 15
)

// Base64 alphabet used for position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Board is [side][slot] where side 1 is the player on roll and side 0 is the
// opponent. Slots 0-23 count from each side's own home (slot 0 is the point
// from which a single pip bears off); slot 24 is the bar.
type Board [2][25]uint8

// key is the packed 80-bit form of a board.
type key [10]uint8

var (
	// ErrInvalidPositionID is returned when a position ID cannot be decoded
	ErrInvalidPositionID = errors.New("invalid position ID")
	// ErrInvalidBoard is returned when a board fails CheckBoard
	ErrInvalidBoard = errors.New("invalid board")
)

// setBits writes n consecutive 1-bits starting at bit pos.
func (k *key) setBits(pos, n uint32) {
	for i := uint32(0); i < n; i++ {
		b := pos + i
		k[b/8] |= 1 << (b % 8)
	}
}

func makeKey(board Board) key {
	var k key
	var pos uint32
	for side := 0; side < 2; side++ {
		for slot := 0; slot < 25; slot++ {
			n := uint32(board[side][slot])
			k.setBits(pos, n)
			pos += n + 1
		}
	}
	return k
}

func boardFromKey(k key) (Board, error) {
	var board Board
	side, slot := 0, 0
	for _, cur := range k {
		for bit := 0; bit < 8; bit++ {
			if side == 2 {
				return board, nil
			}
			if cur&1 != 0 {
				board[side][slot]++
			} else {
				slot++
				if slot == 25 {
					side++
					slot = 0
				}
			}
			cur >>= 1
		}
	}
	if side < 2 {
		return board, fmt.Errorf("%w: truncated board", ErrInvalidPositionID)
	}
	return board, nil
}

// PositionID returns the position ID of a board.
func PositionID(board Board) string {
	k := makeKey(board)
	out := make([]byte, PositionIDLength)
	b := k[:]
	for i := 0; i < 3; i++ {
		out[i*4] = base64Chars[b[0]>>2]
		out[i*4+1] = base64Chars[((b[0]&0x03)<<4)|(b[1]>>4)]
		out[i*4+2] = base64Chars[((b[1]&0x0f)<<2)|(b[2]>>6)]
		out[i*4+3] = base64Chars[b[2]&0x3f]
		b = b[3:]
	}
	out[12] = base64Chars[b[0]>>2]
	out[13] = base64Chars[(b[0]&0x03)<<4]
	return string(out)
}

func base64Decode(ch byte) (uint8, bool) {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A', true
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 26, true
	case ch >= '0' && ch <= '9':
		return ch - '0' + 52, true
	case ch == '+':
		return 62, true
	case ch == '/':
		return 63, true
	}
	return 0, false
}

// BoardFromPositionID decodes a position ID. Anything after the first 14
// characters (such as a ":matchID" suffix) is ignored.
func BoardFromPositionID(posID string) (Board, error) {
	if len(posID) < PositionIDLength {
		return Board{}, fmt.Errorf("%w: %q is too short", ErrInvalidPositionID, posID)
	}

	var ach [PositionIDLength]uint8
	for i := 0; i < PositionIDLength; i++ {
		v, ok := base64Decode(posID[i])
		if !ok {
			return Board{}, fmt.Errorf("%w: bad character %q", ErrInvalidPositionID, posID[i])
		}
		ach[i] = v
	}

	var k key
	p := ach[:]
	for i := 0; i < 3; i++ {
		k[i*3] = (p[0] << 2) | (p[1] >> 4)
		k[i*3+1] = (p[1] << 4) | (p[2] >> 2)
		k[i*3+2] = (p[2] << 6) | p[3]
		p = p[4:]
	}
	k[9] = (p[0] << 2) | (p[1] >> 4)

	board, err := boardFromKey(k)
	if err != nil {
		return board, err
	}
	if err := CheckBoard(board); err != nil {
		return board, fmt.Errorf("%w: %v", ErrInvalidPositionID, err)
	}
	return board, nil
}

// CheckBoard reports whether a board could occur in play: no side has more
// than 15 checkers and the two sides never share a point.
func CheckBoard(board Board) error {
	for side := 0; side < 2; side++ {
		total := 0
		for slot := 0; slot < 25; slot++ {
			total += int(board[side][slot])
		}
		if total > MaxCheckers {
			return fmt.Errorf("%w: side %d has %d checkers", ErrInvalidBoard, side, total)
		}
	}
	for i := 0; i < 24; i++ {
		if board[0][i] > 0 && board[1][23-i] > 0 {
			return fmt.Errorf("%w: both sides on point %d", ErrInvalidBoard, i)
		}
	}
	return nil
}

// SwapSides flips which side is on roll.
func SwapSides(board Board) Board {
	return Board{board[1], board[0]}
}

// OffCount returns how many checkers a side has borne off.
func OffCount(board Board, side int) int {
	n := MaxCheckers
	for slot := 0; slot < 25; slot++ {
		n -= int(board[side][slot])
	}
	return n
}
