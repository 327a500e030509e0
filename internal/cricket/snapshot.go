package cricket

// Snapshot is the serializable state of a match, including the secret
// pending moves. It is stored in Redis and never sent to clients.
type Snapshot struct {
	Code    string   `json:"code"`
	Players []Player `json:"players"`
	Phase   Phase    `json:"phase"`

	Active   bool `json:"active"`
	TossDone bool `json:"tossDone"`

	TossWinner int `json:"tossWinner"`
	Batter     int `json:"batter"`
	Bowler     int `json:"bowler"`
	Winner     int `json:"winner"`

	Score   int          `json:"score"`
	Balls   int          `json:"balls"`
	Target  *int         `json:"target"`
	Inning  int          `json:"inning"`
	Pending PendingMoves `json:"pending"`

	Last            *RoundResult  `json:"last"`
	Over            []RoundResult `json:"over"`
	Out             bool          `json:"out"`
	Warning         string        `json:"warning"`
	ConsecutiveTwos int           `json:"consecutiveTwos"`
	Tracker         *OverTracker  `json:"tracker"`

	OverLimit    *int            `json:"overLimit"`
	FirstInnings *InningsSummary `json:"firstInnings"`
}

func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Code:            m.code,
		Players:         m.Players(),
		Phase:           m.phase,
		Active:          m.active,
		TossDone:        m.tossDone,
		TossWinner:      m.tossWinner,
		Batter:          m.batter,
		Bowler:          m.bowler,
		Winner:          m.winner,
		Score:           m.score,
		Balls:           m.balls,
		Target:          copyInt(m.target),
		Inning:          m.inning,
		Out:             m.out,
		Warning:         m.warning,
		ConsecutiveTwos: m.twos,
		Tracker:         m.tracker.clone(),
		OverLimit:       copyInt(m.overLimit),
		Over:            append([]RoundResult(nil), m.over...),
	}
	if m.pending.Batter != nil {
		mv := *m.pending.Batter
		s.Pending.Batter = &mv
	}
	if m.pending.Bowler != nil {
		mv := *m.pending.Bowler
		s.Pending.Bowler = &mv
	}
	if m.last != nil {
		last := *m.last
		s.Last = &last
	}
	if m.firstInnings != nil {
		fi := *m.firstInnings
		s.FirstInnings = &fi
	}
	return s
}

// Restore rebuilds a match from a snapshot. Options supplies the randomness
// and policy, which are not part of the snapshot.
func Restore(s Snapshot, opts Options) *Match {
	m := &Match{
		code:         s.Code,
		phase:        s.Phase,
		active:       s.Active,
		tossDone:     s.TossDone,
		tossWinner:   s.TossWinner,
		batter:       s.Batter,
		bowler:       s.Bowler,
		winner:       s.Winner,
		score:        s.Score,
		balls:        s.Balls,
		target:       copyInt(s.Target),
		inning:       s.Inning,
		pending:      s.Pending,
		out:          s.Out,
		warning:      s.Warning,
		twos:         s.ConsecutiveTwos,
		overLimit:    copyInt(s.OverLimit),
		over:         append([]RoundResult(nil), s.Over...),
		firstInnings: s.FirstInnings,
	}
	m.joined = copy(m.players[:], s.Players)
	if s.Last != nil {
		last := *s.Last
		m.last = &last
	}
	if s.Tracker != nil {
		m.tracker = s.Tracker.clone()
	} else {
		m.tracker = NewOverTracker()
	}
	if m.inning == 0 {
		m.inning = 1
	}
	m.setOptions(opts)
	return m
}
