package cricket

import "fmt"

const (
	BallsPerOver = 6
	// repeatCap is how many times the bowler may use one token per over.
	repeatCap = 3
)

// OverTracker counts the bowler's tokens inside the current over.
type OverTracker struct {
	Over   int          `json:"over"`
	Counts map[Move]int `json:"counts"`
}

func NewOverTracker() *OverTracker {
	return &OverTracker{Counts: make(map[Move]int)}
}

// Roll clears the tracker when balls has moved into a later over than the
// one being tracked. It reports whether a reset happened.
func (t *OverTracker) Roll(balls int) bool {
	over := balls / BallsPerOver
	if over == t.Over {
		return false
	}
	t.Over = over
	t.Counts = make(map[Move]int)
	return true
}

// Reset starts tracking from the first over of an inning.
func (t *OverTracker) Reset() {
	t.Over = 0
	t.Counts = make(map[Move]int)
}

// Check records a bowler token. A fourth use of any token other than Two is
// refused and leaves the counts unchanged. The third use is allowed with a
// warning.
func (t *OverTracker) Check(m Move) (bool, string) {
	if t.Counts == nil {
		t.Counts = make(map[Move]int)
	}
	if remaining(t.Counts, m) == 0 {
		return false, fmt.Sprintf("No ball! %s was already bowled %d times this over", m, repeatCap)
	}
	t.Counts[m]++
	if m != Two && t.Counts[m] == repeatCap {
		return true, fmt.Sprintf("Bowler has used %s %d times this over, a fourth is a no ball", m, repeatCap)
	}
	return true, ""
}

// Remaining reports how many more times m can be bowled this over; -1 means
// unlimited.
func (t *OverTracker) Remaining(m Move) int {
	return remaining(t.Counts, m)
}

func remaining(counts map[Move]int, m Move) int {
	if m == Two {
		return -1
	}
	return repeatCap - counts[m]
}

func (t *OverTracker) clone() *OverTracker {
	c := &OverTracker{Over: t.Over, Counts: make(map[Move]int, len(t.Counts))}
	for k, v := range t.Counts {
		c.Counts[k] = v
	}
	return c
}
