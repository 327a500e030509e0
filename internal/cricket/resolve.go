package cricket

import "fmt"

// Outcome tags how a delivery was resolved.
type Outcome string

const (
	OutcomeGambleBackfired  Outcome = "gamble-backfired"
	OutcomeGambleSuccess    Outcome = "gamble-success"
	OutcomeGambleDefended   Outcome = "gamble-defended"
	OutcomeTripleTwoOut     Outcome = "triple-two-out"
	OutcomeDotBall          Outcome = "dot-ball"
	OutcomeOut              Outcome = "out"
	OutcomeRuns             Outcome = "runs"
	OutcomeSavedRuns        Outcome = "saved-runs"
	OutcomeDefensivePenalty Outcome = "defensive-penalty"
	OutcomeNoBall           Outcome = "no-ball"
)

// twosLimit is the streak of matching twos that dismisses the batter.
const twosLimit = 3

// Resolution is the result of ResolveRound. Runs is negative only for the
// defensive penalty; the caller floors the score at zero.
type Resolution struct {
	Runs            int
	Dismissed       bool
	Outcome         Outcome
	Saved           int // runs taken away by a bowler save
	ConsecutiveTwos int
}

// ResolveRound combines the batter's and the bowler's move into an outcome.
// score is the batting side's current score and twos the streak of (2,2)
// rounds so far in the inning.
func ResolveRound(batter, bowler Move, score, twos int) Resolution {
	if batter == Two && bowler == Two {
		twos++
		if twos >= twosLimit {
			return Resolution{Dismissed: true, Outcome: OutcomeTripleTwoOut, ConsecutiveTwos: twos}
		}
		return Resolution{Outcome: OutcomeDotBall, ConsecutiveTwos: twos}
	}

	switch {
	case batter == BigSix && bowler == Zero:
		return Resolution{Dismissed: true, Outcome: OutcomeGambleBackfired}
	case batter == BigSix && bowler == Six:
		return Resolution{Runs: 6, Outcome: OutcomeGambleSuccess}
	case batter == BigSix:
		return Resolution{Outcome: OutcomeGambleDefended}
	}

	if batter == bowler {
		if batter == Zero {
			if score > 0 {
				return Resolution{Runs: -1, Outcome: OutcomeDefensivePenalty}
			}
			return Resolution{Outcome: OutcomeDotBall}
		}
		return Resolution{Dismissed: true, Outcome: OutcomeOut}
	}

	runs, _ := batter.Value()
	bowled, _ := bowler.Value()
	saved := runs
	switch {
	case runs == 6 && bowler == Four:
		runs = 4
	case runs == 4 && bowler == Six:
		runs = 2
	case runs == 3 && bowled == 1:
		runs = 1
	}
	saved -= runs

	switch {
	case saved > 0:
		return Resolution{Runs: runs, Saved: saved, Outcome: OutcomeSavedRuns}
	case runs == 0:
		return Resolution{Outcome: OutcomeDotBall}
	}
	return Resolution{Runs: runs, Outcome: OutcomeRuns}
}

// Boundary reports which boundary counter the credited runs feed.
func (r Resolution) Boundary() (four, six bool) {
	return r.Runs == 4, r.Runs == 6
}

// Describe renders the outcome the way the scoreboard shows it.
func (r Resolution) Describe() string {
	switch r.Outcome {
	case OutcomeGambleBackfired:
		return "OUT! The 6B gamble backfired"
	case OutcomeGambleSuccess:
		return "6B gamble paid off! 6 RUNS!"
	case OutcomeGambleDefended:
		return "6B defended. Dot Ball"
	case OutcomeTripleTwoOut:
		return "OUT! Third 2 vs 2 in a row"
	case OutcomeOut:
		return "OUT!"
	case OutcomeDotBall:
		return "Dot Ball"
	case OutcomeDefensivePenalty:
		return "Penalty -1 RUNS! Defensive 0 vs 0"
	case OutcomeSavedRuns:
		return fmt.Sprintf("Bowler saved %d runs! %d RUNS!", r.Saved, r.Runs)
	case OutcomeNoBall:
		return "No Ball! +1 RUNS!"
	}
	return fmt.Sprintf("%d RUNS!", r.Runs)
}
