package game

import (
	"encoding/json"
	"sync"

	"example.com/handcricket/internal/cricket"
)

// Match serializes access to a cricket game and relays its events to the
// connected players.
type Match struct {
	code string
	mu   sync.Mutex

	game     *cricket.Match
	conns    map[string]*ClientConn // by player id
	forfeit  bool
	finished bool

	onPersist func(MatchSnapshot)
	onFinish  func(*Match)
}

func newMatch(g *cricket.Match) *Match {
	return &Match{
		code:  g.Code(),
		game:  g,
		conns: make(map[string]*ClientConn, 2),
	}
}

func (m *Match) Code() string { return m.code }

// State returns the public state without a personalised player.
func (m *Match) State() cricket.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.State()
}

// Finished reports whether the game reached its terminal phase.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.Complete()
}

// attach binds a connection to a seated player. Automated players have none.
func (m *Match) attach(playerID string, cc *ClientConn) {
	if cc == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[playerID] = cc
}

// Join seats the second player. The joining connection is attached before
// the toss so it receives the toss events.
func (m *Match) Join(p cricket.Player, cc *ClientConn) error {
	m.mu.Lock()
	events, err := m.game.Join(p)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if cc != nil {
		m.conns[p.ID] = cc
	}
	m.commitLocked(events)
	return nil
}

func (m *Match) SubmitMove(playerID string, mv cricket.Move) {
	m.mu.Lock()
	m.commitLocked(m.game.SubmitMove(playerID, mv))
}

func (m *Match) ChooseToss(playerID string, choice cricket.TossChoice) error {
	m.mu.Lock()
	events, err := m.game.ChooseToss(playerID, choice)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.commitLocked(events)
	return nil
}

// Leave detaches a player. An active game is forfeited to the opponent.
// It reports whether the player belonged to this match.
func (m *Match) Leave(playerID string) bool {
	m.mu.Lock()
	delete(m.conns, playerID)
	events, ok := m.game.Disconnect(playerID)
	if !ok {
		m.mu.Unlock()
		return false
	}
	if len(events) > 0 {
		m.forfeit = true
	}
	m.commitLocked(events)
	return true
}

// commitLocked relays events, persists the new state and releases the lock.
// The finish hook runs unlocked, once.
func (m *Match) commitLocked(events []cricket.Event) {
	if len(events) == 0 {
		m.mu.Unlock()
		return
	}
	m.dispatchLocked(events)
	m.persistLocked()

	// onFinish ровно один раз, уже без m.mu
	done := m.game.Complete() && !m.finished
	if done {
		m.finished = true
	}
	m.mu.Unlock()

	if done && m.onFinish != nil {
		m.onFinish(m)
	}
}

func (m *Match) dispatchLocked(events []cricket.Event) {
	for _, ev := range events {
		// game_update персонализируем (you) для каждого получателя
		if ev.Kind == cricket.EventGameUpdate {
			m.broadcastStateLocked(MsgGameUpdate)
			continue
		}
		env := Envelope{Type: string(ev.Kind), Payload: mustJSON(ev.Payload)}
		if len(ev.Recipients) == 0 {
			m.broadcastLocked(env)
			continue
		}
		for _, id := range ev.Recipients {
			m.sendLocked(m.conns[id], env)
		}
	}
}

// SendStateTo sends the personalised state to one player.
func (m *Match) SendStateTo(playerID, msgType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendLocked(m.conns[playerID], Envelope{Type: msgType, Payload: mustJSON(m.stateForLocked(playerID))})
}

func (m *Match) broadcastStateLocked(msgType string) {
	st := m.game.State()
	for id, cc := range m.conns {
		m.sendLocked(cc, Envelope{Type: msgType, Payload: mustJSON(StatePayload{State: st, You: id})})
	}
}

func (m *Match) stateForLocked(playerID string) StatePayload {
	return StatePayload{State: m.game.State(), You: playerID}
}

func (m *Match) broadcastLocked(env Envelope) {
	for _, cc := range m.conns {
		m.sendLocked(cc, env)
	}
}

func (m *Match) sendLocked(conn *ClientConn, env Envelope) {
	if conn == nil {
		return
	}
	b, _ := json.Marshal(env)
	conn.sendRaw(b)
}

func (m *Match) persistLocked() {
	if m.onPersist == nil {
		return
	}
	m.onPersist(m.snapshotLocked())
}
