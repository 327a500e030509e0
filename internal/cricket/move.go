package cricket

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Move is a token submitted by a player for one delivery.
type Move string

const (
	Zero    Move = "0"
	One     Move = "1"
	SingleA Move = "1a"
	SingleB Move = "1b"
	SingleC Move = "1c"
	Two     Move = "2"
	Three   Move = "3"
	Four    Move = "4"
	Six     Move = "6"
	BigSix  Move = "6B" // batter only

	// Masked replaces the batter move in a no-ball result.
	Masked Move = "?"
)

var allMoves = []Move{Zero, One, SingleA, SingleB, SingleC, Two, Three, Four, Six, BigSix}

// BatterMoves and BowlerMoves list the legal tokens for each role.
func BatterMoves() []Move { return append([]Move(nil), allMoves...) }
func BowlerMoves() []Move { return append([]Move(nil), allMoves[:len(allMoves)-1]...) }

func (m Move) Valid() bool {
	for _, v := range allMoves {
		if v == m {
			return true
		}
	}
	return false
}

// ValidFor reports whether m may be played from the given role.
func (m Move) ValidFor(r Role) bool {
	if !m.Valid() {
		return false
	}
	return !(m == BigSix && r == RoleBowler)
}

// Value is the numeric run value of the move. The single variants are worth
// one run; BigSix has no fixed value and reports ok=false.
func (m Move) Value() (int, bool) {
	switch m {
	case Zero:
		return 0, true
	case One, SingleA, SingleB, SingleC:
		return 1, true
	case Two:
		return 2, true
	case Three:
		return 3, true
	case Four:
		return 4, true
	case Six:
		return 6, true
	}
	return 0, false
}

func (m Move) isNumeric() bool {
	_, err := strconv.Atoi(string(m))
	return err == nil
}

// MarshalJSON writes plain integers as JSON numbers and every other token as
// a string, which is the shape clients send.
func (m Move) MarshalJSON() ([]byte, error) {
	if m.isNumeric() {
		return []byte(m), nil
	}
	return json.Marshal(string(m))
}

func (m *Move) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*m = Move(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("move: want number or string, got %s", b)
	}
	*m = Move(s)
	return nil
}
