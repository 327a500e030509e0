package cricket

import (
	"errors"
	"math/rand/v2"
)

type Role string

const (
	RoleBatter Role = "batter"
	RoleBowler Role = "bowler"
)

type Phase string

const (
	PhaseAwaitingOpponent Phase = "awaiting_opponent"
	PhaseTossPending      Phase = "toss_pending"
	PhaseTossChoice       Phase = "toss_choice_pending"
	PhaseInning1          Phase = "inning_1"
	PhaseInning2          Phase = "inning_2"
	PhaseComplete         Phase = "complete"
)

// noPlayer marks an unset role or winner index.
const noPlayer = -1

var (
	ErrMatchFull     = errors.New("game is full")
	ErrAlreadyJoined = errors.New("player already in this game")
	ErrNotTossWinner = errors.New("not the toss winner")
	ErrBadTossChoice = errors.New("toss choice must be bat or bowl")
)

type BattingStats struct {
	Runs       int `json:"runsScored"`
	BallsFaced int `json:"ballsFaced"`
	Fours      int `json:"fours"`
	Sixes      int `json:"sixes"`
}

type BowlingStats struct {
	Balls        int `json:"oversBowled"` // tracked as balls, 7 -> 1.1 overs
	RunsConceded int `json:"runsConceded"`
	Wickets      int `json:"wicketsTaken"`
}

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Automated bool   `json:"automated,omitempty"`
	BattingStats
	BowlingStats
}

type RoundResult struct {
	BatterMove  Move    `json:"batterMove"`
	BowlerMove  Move    `json:"bowlerMove"`
	Outcome     Outcome `json:"tag"`
	Description string  `json:"outcome"`
	Runs        int     `json:"runs"`
}

// PendingMoves holds the two secret moves of the round being played.
type PendingMoves struct {
	Batter *Move `json:"batter,omitempty"`
	Bowler *Move `json:"bowler,omitempty"`
}

func (p PendingMoves) complete() bool { return p.Batter != nil && p.Bowler != nil }

// InningsSummary keeps the first innings once the sides swap.
type InningsSummary struct {
	BatterID string `json:"batterId"`
	Score    int    `json:"score"`
	Balls    int    `json:"balls"`
	Out      bool   `json:"out"`
}

type Options struct {
	// OverLimit is the innings length in overs; nil plays until dismissal.
	OverLimit *int
	Rand      *rand.Rand
	Policy    Policy
}

// Match is the state machine of a single game. It is not safe for
// concurrent use; callers serialize access.
type Match struct {
	code    string
	players [2]Player
	joined  int
	phase   Phase

	active   bool
	tossDone bool

	tossWinner int
	batter     int
	bowler     int

	score   int
	balls   int
	target  *int
	inning  int
	pending PendingMoves

	last    *RoundResult
	over    []RoundResult
	out     bool
	winner  int
	warning string
	twos    int
	tracker *OverTracker

	overLimit    *int
	firstInnings *InningsSummary

	rng    *rand.Rand
	policy Policy
}

// NewMatch creates a game seeded with its creator, waiting for an opponent.
func NewMatch(code string, host Player, opts Options) *Match {
	m := &Match{
		code:       code,
		phase:      PhaseAwaitingOpponent,
		tossWinner: noPlayer,
		batter:     noPlayer,
		bowler:     noPlayer,
		winner:     noPlayer,
		inning:     1,
		tracker:    NewOverTracker(),
		overLimit:  opts.OverLimit,
	}
	m.players[0] = host
	m.joined = 1
	m.setOptions(opts)
	return m
}

func (m *Match) setOptions(opts Options) {
	m.rng = opts.Rand
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m.policy = opts.Policy
	if m.policy == nil {
		m.policy = NewRandomPolicy(nil)
	}
}

func (m *Match) Code() string { return m.code }
func (m *Match) Phase() Phase { return m.phase }
func (m *Match) Active() bool { return m.active }
func (m *Match) Inning() int { return m.inning }
func (m *Match) Score() int { return m.score }
func (m *Match) Balls() int { return m.balls }
func (m *Match) Warning() string { return m.warning }

func (m *Match) Complete() bool { return m.phase == PhaseComplete }

// Players returns copies of the joined players in seat order.
func (m *Match) Players() []Player {
	return append([]Player(nil), m.players[:m.joined]...)
}

// Winner returns the winning player; ok is false while the game runs and
// for a draw.
func (m *Match) Winner() (Player, bool) {
	if m.winner == noPlayer {
		return Player{}, false
	}
	return m.players[m.winner], true
}

// Draw reports a completed game without a winner.
func (m *Match) Draw() bool {
	return m.phase == PhaseComplete && m.winner == noPlayer
}

func (m *Match) Target() (int, bool) {
	if m.target == nil {
		return 0, false
	}
	return *m.target, true
}

// RoleOf reports the current role of a player.
func (m *Match) RoleOf(playerID string) (Role, bool) {
	i := m.indexOf(playerID)
	switch {
	case i == noPlayer || !m.tossDone:
		return "", false
	case i == m.batter:
		return RoleBatter, true
	case i == m.bowler:
		return RoleBowler, true
	}
	return "", false
}

func (m *Match) indexOf(playerID string) int {
	for i := 0; i < m.joined; i++ {
		if m.players[i].ID == playerID {
			return i
		}
	}
	return noPlayer
}

func (m *Match) ballLimit() int {
	if m.overLimit == nil || *m.overLimit <= 0 {
		return 0
	}
	return *m.overLimit * BallsPerOver
}

// Join seats the second participant, activates the game and tosses.
func (m *Match) Join(p Player) ([]Event, error) {
	if m.indexOf(p.ID) != noPlayer {
		return nil, ErrAlreadyJoined
	}
	if m.joined >= len(m.players) {
		return nil, ErrMatchFull
	}
	m.players[1] = p
	m.joined = 2
	m.active = true
	m.phase = PhaseTossPending

	events := []Event{updateEvent()}
	return append(events, m.PerformToss()...), nil
}

// SubmitMove records a player's move for the current round. Moves that do
// not fit the current state are ignored and produce no events.
func (m *Match) SubmitMove(playerID string, mv Move) []Event {
	if !m.active || !m.tossDone || m.phase == PhaseComplete {
		return nil
	}
	role, ok := m.RoleOf(playerID)
	if !ok || !mv.ValidFor(role) {
		return nil
	}
	slot := m.slot(role)
	if *slot != nil {
		return nil
	}
	*slot = &mv

	m.autoMove()

	if m.pending.complete() {
		m.playRound()
	}
	return []Event{updateEvent()}
}

func (m *Match) slot(r Role) **Move {
	if r == RoleBatter {
		return &m.pending.Batter
	}
	return &m.pending.Bowler
}

// autoMove lets an automated participant answer in the same step.
func (m *Match) autoMove() {
	for _, r := range []Role{RoleBatter, RoleBowler} {
		idx := m.batter
		if r == RoleBowler {
			idx = m.bowler
		}
		slot := m.slot(r)
		if !m.players[idx].Automated || *slot != nil {
			continue
		}
		mv := m.policy.ChooseMove(m.observe(r))
		if !mv.ValidFor(r) {
			mv = Zero
		}
		*slot = &mv
	}
}

func (m *Match) playRound() {
	bat, bowl := *m.pending.Batter, *m.pending.Bowler
	m.pending = PendingMoves{}
	m.warning = ""

	batter := &m.players[m.batter]
	bowler := &m.players[m.bowler]

	if m.tracker.Roll(m.balls) {
		m.over = nil
	}

	allowed, warning := m.tracker.Check(bowl)
	m.warning = warning
	if !allowed {
		m.score++
		bowler.RunsConceded++
		nb := Resolution{Runs: 1, Outcome: OutcomeNoBall}
		m.record(RoundResult{
			BatterMove:  Masked,
			BowlerMove:  bowl,
			Outcome:     nb.Outcome,
			Description: nb.Describe(),
			Runs:        nb.Runs,
		})
		m.out = false
		return
	}

	res := ResolveRound(bat, bowl, m.score, m.twos)
	m.twos = res.ConsecutiveTwos

	switch {
	case res.Dismissed:
		bowler.Wickets++
	case res.Runs < 0:
		m.score = max(0, m.score+res.Runs)
		batter.Runs = max(0, batter.Runs+res.Runs)
	default:
		m.score += res.Runs
		batter.Runs += res.Runs
		bowler.RunsConceded += res.Runs
		four, six := res.Boundary()
		if four {
			batter.Fours++
		}
		if six {
			batter.Sixes++
		}
	}

	m.record(RoundResult{
		BatterMove:  bat,
		BowlerMove:  bowl,
		Outcome:     res.Outcome,
		Description: res.Describe(),
		Runs:        res.Runs,
	})
	m.out = res.Dismissed

	// A dismissal does not use up a ball, except on the last ball of a
	// limited innings.
	limit := m.ballLimit()
	if !res.Dismissed || (limit > 0 && m.balls+1 >= limit) {
		m.balls++
		batter.BallsFaced++
		bowler.BowlingStats.Balls++
	}

	m.afterBall(res.Dismissed)
}

func (m *Match) record(r RoundResult) {
	m.last = &r
	m.over = append(m.over, r)
}

func (m *Match) afterBall(dismissed bool) {
	limit := m.ballLimit()
	limitReached := limit > 0 && m.balls >= limit

	if m.inning == 1 {
		if dismissed || limitReached {
			m.switchInnings()
		}
		return
	}
	if dismissed || limitReached || m.score >= *m.target {
		m.finish()
	}
}

func (m *Match) switchInnings() {
	m.firstInnings = &InningsSummary{
		BatterID: m.players[m.batter].ID,
		Score:    m.score,
		Balls:    m.balls,
		Out:      m.out,
	}
	target := m.score + 1
	m.target = &target
	m.batter, m.bowler = m.bowler, m.batter

	m.score = 0
	m.balls = 0
	m.out = false
	m.twos = 0
	m.over = nil
	m.tracker.Reset()

	m.inning = 2
	m.phase = PhaseInning2
}

func (m *Match) finish() {
	t := *m.target
	switch {
	case m.score >= t:
		m.winner = m.batter
	case m.score == t-1:
		m.winner = noPlayer
	default:
		m.winner = m.bowler
	}
	m.active = false
	m.phase = PhaseComplete
}

// Disconnect handles a participant leaving. An active game is forfeited to
// the remaining participant. It reports whether playerID belonged to the
// game.
func (m *Match) Disconnect(playerID string) ([]Event, bool) {
	i := m.indexOf(playerID)
	if i == noPlayer {
		return nil, false
	}
	if !m.active {
		return nil, true
	}
	m.winner = 1 - i
	m.active = false
	m.pending = PendingMoves{}
	m.phase = PhaseComplete
	return []Event{updateEvent()}, true
}
