package cricket

import "fmt"

type TossChoice string

const (
	ChooseBat  TossChoice = "bat"
	ChooseBowl TossChoice = "bowl"
)

func (c TossChoice) Valid() bool { return c == ChooseBat || c == ChooseBowl }

// PerformToss picks the toss winner uniformly. An automated winner decides
// immediately; a human winner is asked to choose. It does nothing unless
// exactly two participants are seated and the toss is still open.
func (m *Match) PerformToss() []Event {
	if m.joined != len(m.players) || m.tossDone || m.phase != PhaseTossPending {
		return nil
	}
	m.tossWinner = m.rng.IntN(2)
	winner := m.players[m.tossWinner]

	if winner.Automated {
		choice := m.policy.ChooseToss(m.observe(""))
		if !choice.Valid() {
			choice = ChooseBat
		}
		return m.assignRoles(choice)
	}

	m.phase = PhaseTossChoice
	return []Event{
		updateEvent(),
		{
			Kind:    EventTossResult,
			Payload: TossResult{Message: fmt.Sprintf("%s won the toss and is choosing to bat or bowl", winner.Name)},
		},
		{
			Kind:       EventRequestTossChoice,
			Recipients: []string{winner.ID},
			Payload:    TossRequest{GameCode: m.code, TossWinnerID: winner.ID},
		},
	}
}

// ChooseToss applies the toss winner's decision.
func (m *Match) ChooseToss(playerID string, choice TossChoice) ([]Event, error) {
	if m.phase != PhaseTossChoice || m.tossWinner == noPlayer || m.players[m.tossWinner].ID != playerID {
		return nil, ErrNotTossWinner
	}
	if !choice.Valid() {
		return nil, ErrBadTossChoice
	}
	return m.assignRoles(choice), nil
}

func (m *Match) assignRoles(choice TossChoice) []Event {
	w := m.tossWinner
	if choice == ChooseBat {
		m.batter, m.bowler = w, 1-w
	} else {
		m.batter, m.bowler = 1-w, w
	}
	m.tossDone = true
	m.phase = PhaseInning1

	batter, bowler := m.players[m.batter], m.players[m.bowler]
	msg := fmt.Sprintf("%s won the toss and chose to %s. %s bats first.", m.players[w].Name, choice, batter.Name)
	return []Event{
		{Kind: EventTossResult, Payload: TossResult{Batter: &batter, Bowler: &bowler, Message: msg}},
		updateEvent(),
	}
}
