package cricket

// State is the public view of a match broadcast after each change. Pending
// moves are reduced to who has moved.
type State struct {
	GameCode     string          `json:"gameCode"`
	Phase        Phase           `json:"phase"`
	Players      []Player        `json:"players"`
	IsGameActive bool            `json:"isGameActive"`
	IsTossDone   bool            `json:"isTossDone"`
	TossWinnerID string          `json:"tossWinnerId,omitempty"`
	Batter       *Player         `json:"batter"`
	Bowler       *Player         `json:"bowler"`
	Score        int             `json:"score"`
	Balls        int             `json:"balls"`
	Overs        string          `json:"overs"`
	OverLimit    *int            `json:"overLimit"`
	Target       *int            `json:"target"`
	Inning       int             `json:"inning"`
	MovesMade    map[string]bool `json:"movesMade"`
	LastResult   *RoundResult    `json:"lastRoundResult"`
	CurrentOver  []RoundResult   `json:"currentOverHistory"`
	Out          bool            `json:"out"`
	Winner       *Player         `json:"winner"`
	IsDraw       bool            `json:"isDraw"`
	Warning      string          `json:"warning,omitempty"`
	FirstInnings *InningsSummary `json:"firstInnings,omitempty"`
	Scorecard    Scorecard       `json:"scorecard"`
}

type Scorecard struct {
	RunRate         string       `json:"runRate"`
	RunsNeeded      *int         `json:"runsNeeded,omitempty"`
	BallsLeft       *int         `json:"ballsLeft,omitempty"`
	RequiredRunRate string       `json:"requiredRunRate,omitempty"`
	Players         []PlayerCard `json:"players"`
}

type PlayerCard struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StrikeRate string `json:"strikeRate"`
	Overs      string `json:"overs"`
	Economy    string `json:"economy"`
}

func (m *Match) State() State {
	st := State{
		GameCode:     m.code,
		Phase:        m.phase,
		Players:      m.Players(),
		IsGameActive: m.active,
		IsTossDone:   m.tossDone,
		Score:        m.score,
		Balls:        m.balls,
		Overs:        FormatOvers(m.balls),
		OverLimit:    copyInt(m.overLimit),
		Target:       copyInt(m.target),
		Inning:       m.inning,
		MovesMade:    make(map[string]bool, m.joined),
		Out:          m.out,
		IsDraw:       m.Draw(),
		Warning:      m.warning,
		CurrentOver:  append([]RoundResult{}, m.over...),
	}
	if m.tossWinner != noPlayer {
		st.TossWinnerID = m.players[m.tossWinner].ID
	}
	if m.tossDone {
		batter, bowler := m.players[m.batter], m.players[m.bowler]
		st.Batter, st.Bowler = &batter, &bowler
		st.MovesMade[batter.ID] = m.pending.Batter != nil
		st.MovesMade[bowler.ID] = m.pending.Bowler != nil
	}
	if m.last != nil {
		last := *m.last
		st.LastResult = &last
	}
	if w, ok := m.Winner(); ok {
		st.Winner = &w
	}
	if m.firstInnings != nil {
		fi := *m.firstInnings
		st.FirstInnings = &fi
	}
	st.Scorecard = m.scorecard()
	return st
}

func (m *Match) scorecard() Scorecard {
	sc := Scorecard{RunRate: RunRate(m.score, m.balls)}
	if m.target != nil && m.phase != PhaseComplete {
		need := max(0, *m.target-m.score)
		sc.RunsNeeded = &need
		if limit := m.ballLimit(); limit > 0 {
			left := max(0, limit-m.balls)
			sc.BallsLeft = &left
			sc.RequiredRunRate = RunRate(need, left)
		}
	}
	for _, p := range m.Players() {
		sc.Players = append(sc.Players, PlayerCard{
			ID:         p.ID,
			Name:       p.Name,
			StrikeRate: StrikeRate(p.Runs, p.BallsFaced),
			Overs:      FormatOvers(p.BowlingStats.Balls),
			Economy:    Economy(p.RunsConceded, p.BowlingStats.Balls),
		})
	}
	return sc
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
