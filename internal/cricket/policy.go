package cricket

import (
	"math/rand/v2"
	"sync"
)

// Observation is what an automated participant may see when deciding. It
// never includes the opponent's pending move.
type Observation struct {
	Role      Role
	Inning    int
	Score     int
	Balls     int
	BallLimit int // 0 = unlimited
	Target    *int
	Twos      int
	// OverCounts is a copy of the bowler's token counts in the current over.
	OverCounts map[Move]int
}

// Policy decides for an automated participant. Both calls are synchronous.
type Policy interface {
	ChooseMove(obs Observation) Move
	ChooseToss(obs Observation) TossChoice
}

func (m *Match) observe(r Role) Observation {
	counts := m.tracker
	if counts.Over != m.balls/BallsPerOver {
		// the over has turned but the tracker rolls on the next delivery
		counts = NewOverTracker()
	}
	obs := Observation{
		Role:       r,
		Inning:     m.inning,
		Score:      m.score,
		Balls:      m.balls,
		BallLimit:  m.ballLimit(),
		Twos:       m.twos,
		OverCounts: counts.clone().Counts,
	}
	if m.target != nil {
		t := *m.target
		obs.Target = &t
	}
	return obs
}

// RandomPolicy is the scripted opponent: uniform picks among legal moves,
// never bowling a no-ball, with an occasional 6B gamble when chasing.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPolicy uses r, or a randomly seeded source when r is nil.
func NewRandomPolicy(r *rand.Rand) *RandomPolicy {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomPolicy{rng: r}
}

func (p *RandomPolicy) ChooseMove(obs Observation) Move {
	p.mu.Lock()
	defer p.mu.Unlock()

	if obs.Role == RoleBowler {
		var legal []Move
		for _, mv := range BowlerMoves() {
			if remaining(obs.OverCounts, mv) != 0 {
				legal = append(legal, mv)
			}
		}
		return legal[p.rng.IntN(len(legal))]
	}

	if obs.Target != nil && *obs.Target-obs.Score >= 6 && p.rng.IntN(10) == 0 {
		return BigSix
	}
	moves := BatterMoves()
	moves = moves[:len(moves)-1]
	return moves[p.rng.IntN(len(moves))]
}

func (p *RandomPolicy) ChooseToss(Observation) TossChoice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng.IntN(2) == 0 {
		return ChooseBat
	}
	return ChooseBowl
}
