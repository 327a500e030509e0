package game

import (
	"time"

	"example.com/handcricket/internal/cricket"
)

// MatchSnapshot: сериализуемое состояние матча, которое кладём в Redis.
type MatchSnapshot struct {
	Game    cricket.Snapshot `json:"game"`
	Forfeit bool             `json:"forfeit,omitempty"`
	SavedMs int64            `json:"savedMs"`
}

func (m *Match) snapshotLocked() MatchSnapshot {
	return MatchSnapshot{
		Game:    m.game.Snapshot(),
		Forfeit: m.forfeit,
		SavedMs: time.Now().UnixMilli(),
	}
}

// restoreMatch rebuilds a match without connections; players re-enter by
// joining or through the lookup endpoint.
func restoreMatch(s MatchSnapshot, opts cricket.Options) *Match {
	m := newMatch(cricket.Restore(s.Game, opts))
	m.forfeit = s.Forfeit
	m.finished = m.game.Complete()
	return m
}
