package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"example.com/handcricket/internal/cricket"
	"example.com/handcricket/internal/store"
	"github.com/google/uuid"
)

var (
	ErrMatchNotFound = errors.New("game not found")
	ErrBadOverLimit  = errors.New("over limit out of range")
)

// ResultRecorder archives completed matches.
type ResultRecorder interface {
	Record(ctx context.Context, r store.MatchResult) (int64, error)
}

type CreateRequest struct {
	PlayerName string
	OverLimit  *int
	VsAI       bool
}

// MatchService отвечает за:
// - in-memory кэш матчей по коду игры
// - snapshot-ы в persistent storage (Redis), чтобы матч пережил рестарт
// - архивирование завершённых матчей
type MatchService struct {
	mu sync.Mutex
	in map[string]*Match

	cfg     Config
	persist MatchPersistence
	results ResultRecorder
	log     *slog.Logger

	newCode  func() string
	gameOpts func() cricket.Options
}

// NewMatchService wires the registry. results may be nil when no database
// is configured.
func NewMatchService(cfg Config, persist MatchPersistence, results ResultRecorder, log *slog.Logger) *MatchService {
	if log == nil {
		log = slog.Default()
	}
	if persist == nil {
		persist = NewInMemoryMatchStore()
	}
	return &MatchService{
		in:       make(map[string]*Match),
		cfg:      cfg.withDefaults(),
		persist:  persist,
		results:  results,
		log:      log,
		newCode:  randCode,
		gameOpts: func() cricket.Options { return cricket.Options{} },
	}
}

// Create registers a new match with the requesting player seated first and
// sends them game_created. Against the computer the opponent joins at once
// and the toss follows.
func (s *MatchService) Create(ctx context.Context, req CreateRequest, playerID string, cc *ClientConn) (*Match, error) {
	limit, err := s.overLimit(req.OverLimit)
	if err != nil {
		return nil, err
	}
	host := cricket.Player{ID: playerID, Name: s.cfg.playerName(req.PlayerName, "Player 1")}

	opts := s.gameOpts()
	opts.OverLimit = limit

	s.mu.Lock()
	code, err := s.freeCodeLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	m := newMatch(cricket.NewMatch(code, host, opts))
	s.hook(m)
	s.in[code] = m
	s.mu.Unlock()

	m.attach(playerID, cc)

	m.mu.Lock()
	m.persistLocked()
	m.mu.Unlock()

	s.log.Info("game created", "code", code, "player", playerID, "overLimit", formatLimit(limit), "vsAI", req.VsAI)
	m.SendStateTo(playerID, MsgGameCreated)

	if req.VsAI {
		ai := cricket.Player{ID: "ai-" + uuid.NewString(), Name: s.cfg.AIName, Automated: true}
		if err := m.Join(ai, nil); err != nil {
			return nil, fmt.Errorf("seat computer in %s: %w", code, err)
		}
	}
	return m, nil
}

// Join seats a second player in an existing match. A match known only from
// storage is registered once the join succeeds.
func (s *MatchService) Join(ctx context.Context, code, playerID, name string, cc *ClientConn) (*Match, error) {
	code = normalizeCode(code)
	p := cricket.Player{ID: playerID, Name: s.cfg.playerName(name, "Player 2")}

	m, ok := s.Get(code)
	if !ok {
		restored, err := s.joinStored(ctx, code, p, cc)
		if err != nil {
			return nil, err
		}
		m = restored
	} else if err := m.Join(p, cc); err != nil {
		return nil, err
	}
	s.log.Info("player joined", "code", m.Code(), "player", playerID)
	return m, nil
}

// joinStored restores a match from its snapshot and seats p in it. A stored
// match nobody can join stays out of the registry.
func (s *MatchService) joinStored(ctx context.Context, code string, p cricket.Player, cc *ClientConn) (*Match, error) {
	snap, found, err := s.persist.Load(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", code, err)
	}
	if !found {
		return nil, ErrMatchNotFound
	}

	s.mu.Lock()
	if cur, ok := s.in[code]; ok {
		s.mu.Unlock()
		if err := cur.Join(p, cc); err != nil {
			return nil, err
		}
		return cur, nil
	}
	defer s.mu.Unlock()

	m := restoreMatch(snap, s.gameOpts())
	s.hook(m)
	// Join не завершает матч, поэтому onFinish не возьмёт s.mu повторно
	if err := m.Join(p, cc); err != nil {
		return nil, err
	}
	s.in[code] = m
	s.log.Info("game restored", "code", code, "phase", snap.Game.Phase)
	return m, nil
}

func (s *MatchService) Get(code string) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.in[normalizeCode(code)]
	return m, ok
}

// Lookup returns the public state of a live match, falling back to its
// stored snapshot. Reading a snapshot does not register the match.
func (s *MatchService) Lookup(ctx context.Context, code string) (cricket.State, bool, error) {
	code = normalizeCode(code)
	if m, ok := s.Get(code); ok {
		return m.State(), true, nil
	}

	snap, found, err := s.persist.Load(ctx, code)
	if err != nil {
		return cricket.State{}, false, fmt.Errorf("load %s: %w", code, err)
	}
	if !found {
		return cricket.State{}, false, nil
	}
	return restoreMatch(snap, s.gameOpts()).State(), true, nil
}

// Remove drops a match from the registry and storage. Unknown codes are
// ignored.
func (s *MatchService) Remove(ctx context.Context, code string) {
	s.mu.Lock()
	_, ok := s.in[code]
	delete(s.in, code)
	s.mu.Unlock()

	if err := s.persist.Delete(ctx, code); err != nil {
		s.log.Warn("delete snapshot failed", "code", code, "err", err)
	}
	if ok {
		s.log.Info("game removed", "code", code)
	}
}

// Leave handles a departing connection. A match the player belonged to is
// removed whatever its state; an active one is forfeited first.
func (s *MatchService) Leave(ctx context.Context, code, playerID string) {
	m, ok := s.Get(code)
	if !ok {
		return
	}
	if !m.Leave(playerID) {
		return
	}
	s.Remove(ctx, code)
}

// Len reports the number of live matches.
func (s *MatchService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.in)
}

// freeCodeLocked draws codes until one is used neither by a live match nor
// by a stored snapshot. Callers hold s.mu.
func (s *MatchService) freeCodeLocked(ctx context.Context) (string, error) {
	for {
		code := s.newCode()
		if s.in[code] != nil {
			continue
		}
		_, found, err := s.persist.Load(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !found {
			return code, nil
		}
	}
}

func (s *MatchService) hook(m *Match) {
	code := m.code
	// hook: любое изменение матча сохраняет snapshot
	m.onPersist = func(snap MatchSnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
		defer cancel()
		if err := s.persist.Save(ctx, code, snap); err != nil {
			s.log.Warn("save snapshot failed", "code", code, "err", err)
		}
	}
	m.onFinish = s.finish
}

func (s *MatchService) finish(m *Match) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()

	m.mu.Lock()
	res := resultFromState(m.game.State(), m.forfeit)
	m.mu.Unlock()

	s.log.Info("game finished", "code", res.Code, "winner", res.WinnerName, "draw", res.Draw, "forfeit", res.Forfeit)
	if s.results != nil {
		if _, err := s.results.Record(ctx, res); err != nil {
			s.log.Error("record result failed", "code", res.Code, "err", err)
		}
	}
	s.Remove(ctx, m.code)
}

func (s *MatchService) overLimit(req *int) (*int, error) {
	if req == nil {
		if s.cfg.DefaultOvers <= 0 {
			return nil, nil
		}
		v := s.cfg.DefaultOvers
		return &v, nil
	}
	v := *req
	switch {
	case v < 0, s.cfg.MaxOvers > 0 && v > s.cfg.MaxOvers:
		return nil, fmt.Errorf("%w: %d (max %d)", ErrBadOverLimit, v, s.cfg.MaxOvers)
	case v == 0:
		return nil, nil
	}
	return &v, nil
}

func resultFromState(st cricket.State, forfeit bool) store.MatchResult {
	r := store.MatchResult{
		Code:       st.GameCode,
		OverLimit:  st.OverLimit,
		Draw:       st.IsDraw,
		Forfeit:    forfeit,
		Target:     st.Target,
		FinishedAt: time.Now().UTC(),
	}
	if st.Winner != nil {
		r.WinnerID = st.Winner.ID
		r.WinnerName = st.Winner.Name
	}
	if st.FirstInnings != nil {
		r.FirstInnings = st.FirstInnings.Score
		second := st.Score
		r.SecondInnings = &second
	} else {
		r.FirstInnings = st.Score
	}
	for _, p := range st.Players {
		r.Players = append(r.Players, store.PlayerLine{
			PlayerID:     p.ID,
			Name:         p.Name,
			Automated:    p.Automated,
			Runs:         p.Runs,
			BallsFaced:   p.BallsFaced,
			Fours:        p.Fours,
			Sixes:        p.Sixes,
			BallsBowled:  p.BowlingStats.Balls,
			RunsConceded: p.RunsConceded,
			Wickets:      p.Wickets,
		})
	}
	return r
}

const (
	codeLen      = 5
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randCode() string {
	b := make([]byte, codeLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// playerName trims the requested name, applies the default and truncates
// to the configured length.
func (c Config) playerName(name, def string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return def
	}
	if c.NameMaxLen > 0 && utf8.RuneCountInString(name) > c.NameMaxLen {
		name = strings.TrimSpace(string([]rune(name)[:c.NameMaxLen]))
	}
	return name
}

func formatLimit(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return fmt.Sprint(*limit)
}
