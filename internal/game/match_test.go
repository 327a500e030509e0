package game

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"example.com/handcricket/internal/cricket"
	"example.com/handcricket/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource decides the toss: seat 0 wins on an even value, seat 1 on odd.
type fixedSource uint64

func (s fixedSource) Uint64() uint64 { return uint64(s) }

type recorderStub struct {
	mu  sync.Mutex
	got []store.MatchResult
}

func (r *recorderStub) Record(_ context.Context, res store.MatchResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, res)
	return int64(len(r.got)), nil
}

func (r *recorderStub) results() []store.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.MatchResult(nil), r.got...)
}

func newTestConn() *ClientConn {
	c := newClientConn(nil)
	c.send = make(chan []byte, 256)
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(toss uint64) (*MatchService, *InMemoryMatchStore, *recorderStub) {
	persist := NewInMemoryMatchStore()
	rec := &recorderStub{}
	svc := NewMatchService(Config{MaxOvers: 20}, persist, rec, discardLogger())
	svc.gameOpts = func() cricket.Options {
		return cricket.Options{Rand: rand.New(fixedSource(toss))}
	}
	return svc, persist, rec
}

func readEnvelopesNonBlocking(c *ClientConn) []Envelope {
	var envs []Envelope
	for {
		select {
		case msg := <-c.send:
			var env Envelope
			if json.Unmarshal(msg, &env) == nil {
				envs = append(envs, env)
			}
		default:
			return envs
		}
	}
}

func types(envs []Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

func findLastState(envs []Envelope) (StatePayload, bool) {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type != MsgGameUpdate && envs[i].Type != MsgGameCreated {
			continue
		}
		var st StatePayload
		if json.Unmarshal(envs[i].Payload, &st) == nil {
			return st, true
		}
	}
	return StatePayload{}, false
}

// startMatch creates a match for "u1", seats "u2" and lets u1 bat after
// winning the toss.
func startMatch(t *testing.T, svc *MatchService) (*Match, *ClientConn, *ClientConn) {
	t.Helper()
	ctx := context.Background()
	c1, c2 := newTestConn(), newTestConn()

	m, err := svc.Create(ctx, CreateRequest{PlayerName: "Alice"}, "u1", c1)
	require.NoError(t, err)
	_, err = svc.Join(ctx, m.Code(), "u2", "Bob", c2)
	require.NoError(t, err)
	require.NoError(t, m.ChooseToss("u1", cricket.ChooseBat))

	readEnvelopesNonBlocking(c1)
	readEnvelopesNonBlocking(c2)
	return m, c1, c2
}

func TestMatch_Scenarios(t *testing.T) {
	type scenario struct {
		name string
		run  func(t *testing.T)
	}

	cases := []scenario{
		{
			name: "creator receives game_created with their id",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				c1 := newTestConn()

				m, err := svc.Create(context.Background(), CreateRequest{PlayerName: "  Alice  "}, "u1", c1)
				require.NoError(t, err)

				envs := readEnvelopesNonBlocking(c1)
				require.Equal(t, []string{MsgGameCreated}, types(envs))

				st, ok := findLastState(envs)
				require.True(t, ok)
				assert.Equal(t, "u1", st.You)
				assert.Equal(t, m.Code(), st.GameCode)
				assert.Equal(t, cricket.PhaseAwaitingOpponent, st.Phase)
				assert.False(t, st.IsGameActive)
				require.Len(t, st.Players, 1)
				assert.Equal(t, "Alice", st.Players[0].Name)
			},
		},
		{
			name: "join tosses and asks only the winner to choose",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				ctx := context.Background()
				c1, c2 := newTestConn(), newTestConn()

				m, err := svc.Create(ctx, CreateRequest{PlayerName: "Alice"}, "u1", c1)
				require.NoError(t, err)
				readEnvelopesNonBlocking(c1)

				_, err = svc.Join(ctx, m.Code(), "u2", "Bob", c2)
				require.NoError(t, err)

				e1 := readEnvelopesNonBlocking(c1)
				e2 := readEnvelopesNonBlocking(c2)
				assert.Contains(t, types(e1), MsgRequestTossChoice)
				assert.NotContains(t, types(e2), MsgRequestTossChoice)
				assert.Contains(t, types(e2), MsgTossResult)

				st, ok := findLastState(e2)
				require.True(t, ok)
				assert.Equal(t, "u2", st.You)
				assert.Equal(t, cricket.PhaseTossChoice, st.Phase)
				assert.Equal(t, "u1", st.TossWinnerID)
			},
		},
		{
			name: "only the toss winner may choose",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				ctx := context.Background()

				m, err := svc.Create(ctx, CreateRequest{}, "u1", newTestConn())
				require.NoError(t, err)
				_, err = svc.Join(ctx, m.Code(), "u2", "", newTestConn())
				require.NoError(t, err)

				assert.ErrorIs(t, m.ChooseToss("u2", cricket.ChooseBowl), cricket.ErrNotTossWinner)
				require.NoError(t, m.ChooseToss("u1", cricket.ChooseBowl))

				st := m.State()
				assert.Equal(t, "u2", st.Batter.ID)
				assert.Equal(t, "Player 2", st.Batter.Name)
				assert.Equal(t, "Player 1", st.Bowler.Name)
			},
		},
		{
			name: "pending move is broadcast as made but not revealed",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				m, c1, c2 := startMatch(t, svc)

				m.SubmitMove("u1", cricket.Six)

				e2 := readEnvelopesNonBlocking(c2)
				require.Equal(t, []string{MsgGameUpdate}, types(e2))
				assert.NotContains(t, string(e2[0].Payload), `"pending"`)

				st, _ := findLastState(e2)
				assert.True(t, st.MovesMade["u1"])
				assert.False(t, st.MovesMade["u2"])
				assert.Len(t, readEnvelopesNonBlocking(c1), 1)

				// repeated move in the same round is ignored silently
				m.SubmitMove("u1", cricket.Four)
				assert.Empty(t, readEnvelopesNonBlocking(c1))
			},
		},
		{
			name: "full round updates both players",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				m, c1, c2 := startMatch(t, svc)

				m.SubmitMove("u1", cricket.Four)
				m.SubmitMove("u2", cricket.Two)

				for _, c := range []*ClientConn{c1, c2} {
					st, ok := findLastState(readEnvelopesNonBlocking(c))
					require.True(t, ok)
					assert.Equal(t, 4, st.Score)
					assert.Equal(t, 1, st.Balls)
					require.NotNil(t, st.LastResult)
					assert.Equal(t, cricket.Four, st.LastResult.BatterMove)
					assert.Equal(t, cricket.Two, st.LastResult.BowlerMove)
				}
			},
		},
		{
			name: "completed match is archived and removed",
			run: func(t *testing.T) {
				svc, persist, rec := newTestService(0)
				m, _, c2 := startMatch(t, svc)
				code := m.Code()

				m.SubmitMove("u1", cricket.Three)
				m.SubmitMove("u2", cricket.Three) // out, target 1
				m.SubmitMove("u2", cricket.Four)
				m.SubmitMove("u1", cricket.Two) // chased

				st, _ := findLastState(readEnvelopesNonBlocking(c2))
				assert.Equal(t, cricket.PhaseComplete, st.Phase)
				require.NotNil(t, st.Winner)
				assert.Equal(t, "u2", st.Winner.ID)

				_, ok := svc.Get(code)
				assert.False(t, ok)
				_, found, _ := persist.Load(context.Background(), code)
				assert.False(t, found)

				got := rec.results()
				require.Len(t, got, 1)
				assert.Equal(t, code, got[0].Code)
				assert.Equal(t, "u2", got[0].WinnerID)
				assert.False(t, got[0].Forfeit)
				assert.Equal(t, 0, got[0].FirstInnings)
				require.NotNil(t, got[0].SecondInnings)
				assert.Equal(t, 4, *got[0].SecondInnings)
				require.Len(t, got[0].Players, 2)
			},
		},
		{
			name: "leaving an active match forfeits it",
			run: func(t *testing.T) {
				svc, _, rec := newTestService(0)
				m, _, c2 := startMatch(t, svc)

				svc.Leave(context.Background(), m.Code(), "u1")

				st, ok := findLastState(readEnvelopesNonBlocking(c2))
				require.True(t, ok)
				assert.Equal(t, cricket.PhaseComplete, st.Phase)
				require.NotNil(t, st.Winner)
				assert.Equal(t, "u2", st.Winner.ID)

				assert.Equal(t, 0, svc.Len())
				got := rec.results()
				require.Len(t, got, 1)
				assert.True(t, got[0].Forfeit)
			},
		},
		{
			name: "leaving a waiting match removes it without a result",
			run: func(t *testing.T) {
				svc, _, rec := newTestService(0)
				m, err := svc.Create(context.Background(), CreateRequest{}, "u1", newTestConn())
				require.NoError(t, err)

				svc.Leave(context.Background(), m.Code(), "u1")
				assert.Equal(t, 0, svc.Len())
				assert.Empty(t, rec.results())
			},
		},
		{
			name: "leaving by a stranger changes nothing",
			run: func(t *testing.T) {
				svc, _, _ := newTestService(0)
				m, _, _ := startMatch(t, svc)

				svc.Leave(context.Background(), m.Code(), "stranger")
				assert.Equal(t, 1, svc.Len())
				assert.True(t, m.State().IsGameActive)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestMatchService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		svc, _, _ := newTestService(0)
		_, err := svc.Join(ctx, "ZZZZZ", "u2", "Bob", newTestConn())
		assert.ErrorIs(t, err, ErrMatchNotFound)
		assert.Equal(t, "not_found", errorCode(err))
	})

	t.Run("full game", func(t *testing.T) {
		svc, _, _ := newTestService(0)
		m, _, _ := startMatch(t, svc)
		_, err := svc.Join(ctx, m.Code(), "u3", "Carol", newTestConn())
		assert.ErrorIs(t, err, cricket.ErrMatchFull)
		assert.Equal(t, "game_full", errorCode(err))
	})

	t.Run("code is case insensitive", func(t *testing.T) {
		svc, _, _ := newTestService(0)
		svc.newCode = func() string { return "AB12C" }
		_, err := svc.Create(ctx, CreateRequest{}, "u1", newTestConn())
		require.NoError(t, err)

		m, err := svc.Join(ctx, " ab12c ", "u2", "Bob", newTestConn())
		require.NoError(t, err)
		assert.Equal(t, "AB12C", m.Code())
	})
}

func TestMatchService_CreateOptions(t *testing.T) {
	ctx := context.Background()
	ptr := func(n int) *int { return &n }

	cases := []struct {
		name    string
		def     int
		req     *int
		want    *int
		wantErr bool
	}{
		{name: "null uses default", def: 2, req: nil, want: ptr(2)},
		{name: "null without default is unlimited", req: nil, want: nil},
		{name: "zero is unlimited", def: 2, req: ptr(0), want: nil},
		{name: "explicit", req: ptr(5), want: ptr(5)},
		{name: "negative", req: ptr(-1), wantErr: true},
		{name: "above max", req: ptr(21), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewMatchService(Config{DefaultOvers: tc.def, MaxOvers: 20}, nil, nil, discardLogger())
			m, err := svc.Create(ctx, CreateRequest{OverLimit: tc.req}, "u1", newTestConn())
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadOverLimit)
				assert.Equal(t, 0, svc.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.State().OverLimit)
		})
	}
}

type failingStore struct{ InMemoryMatchStore }

func (*failingStore) Load(context.Context, string) (MatchSnapshot, bool, error) {
	return MatchSnapshot{}, false, errors.New("connection refused")
}

func TestMatchService_CodeCollision(t *testing.T) {
	ctx := context.Background()
	queue := func(codes ...string) func() string {
		return func() string {
			c := codes[0]
			codes = codes[1:]
			return c
		}
	}

	t.Run("live match", func(t *testing.T) {
		svc, _, _ := newTestService(0)
		svc.newCode = queue("AAAAA", "AAAAA", "BBBBB")

		m1, err := svc.Create(ctx, CreateRequest{}, "u1", newTestConn())
		require.NoError(t, err)
		m2, err := svc.Create(ctx, CreateRequest{}, "u2", newTestConn())
		require.NoError(t, err)

		assert.Equal(t, "AAAAA", m1.Code())
		assert.Equal(t, "BBBBB", m2.Code())
	})

	t.Run("stored match of another instance", func(t *testing.T) {
		svc1, persist, _ := newTestService(0)
		svc1.newCode = queue("AAAAA")
		_, err := svc1.Create(ctx, CreateRequest{PlayerName: "Alice"}, "u1", newTestConn())
		require.NoError(t, err)

		svc2 := NewMatchService(Config{}, persist, nil, discardLogger())
		svc2.newCode = queue("AAAAA", "BBBBB")
		m, err := svc2.Create(ctx, CreateRequest{PlayerName: "Bob"}, "u2", newTestConn())
		require.NoError(t, err)
		assert.Equal(t, "BBBBB", m.Code())

		snap, found, err := persist.Load(ctx, "AAAAA")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Alice", snap.Game.Players[0].Name)
	})

	t.Run("storage error", func(t *testing.T) {
		svc := NewMatchService(Config{}, &failingStore{}, nil, discardLogger())
		_, err := svc.Create(ctx, CreateRequest{}, "u1", newTestConn())
		require.Error(t, err)
		assert.Zero(t, svc.Len())
	})
}

func TestMatchService_VsComputer(t *testing.T) {
	t.Run("human wins toss", func(t *testing.T) {
		svc, _, _ := newTestService(0)
		c1 := newTestConn()
		m, err := svc.Create(context.Background(), CreateRequest{PlayerName: "Alice", VsAI: true}, "u1", c1)
		require.NoError(t, err)

		envs := readEnvelopesNonBlocking(c1)
		assert.Equal(t, MsgGameCreated, envs[0].Type)
		assert.Contains(t, types(envs), MsgRequestTossChoice)

		st := m.State()
		require.Len(t, st.Players, 2)
		assert.Equal(t, "Computer", st.Players[1].Name)
		assert.True(t, st.Players[1].Automated)
		assert.Equal(t, cricket.PhaseTossChoice, st.Phase)

		require.NoError(t, m.ChooseToss("u1", cricket.ChooseBat))
		m.SubmitMove("u1", cricket.Four)

		// the computer answers in the same step
		st = m.State()
		require.NotNil(t, st.LastResult)
		assert.Equal(t, cricket.Four, st.LastResult.BatterMove)
		assert.False(t, st.MovesMade["u1"])
	})

	t.Run("computer wins toss and decides", func(t *testing.T) {
		svc, _, _ := newTestService(1)
		c1 := newTestConn()
		m, err := svc.Create(context.Background(), CreateRequest{VsAI: true}, "u1", c1)
		require.NoError(t, err)

		envs := readEnvelopesNonBlocking(c1)
		assert.NotContains(t, types(envs), MsgRequestTossChoice)
		assert.Contains(t, types(envs), MsgTossResult)
		assert.Equal(t, cricket.PhaseInning1, m.State().Phase)
	})
}

func TestMatchService_RestoreAfterRestart(t *testing.T) {
	ctx := context.Background()

	t.Run("pending move survives", func(t *testing.T) {
		svc, persist, _ := newTestService(0)
		m, _, _ := startMatch(t, svc)
		m.SubmitMove("u1", cricket.Six)
		m.SubmitMove("u2", cricket.One)
		m.SubmitMove("u1", cricket.Two) // pending

		snap, found, err := persist.Load(ctx, m.Code())
		require.NoError(t, err)
		require.True(t, found)
		m2 := restoreMatch(snap, cricket.Options{})
		assert.Equal(t, m.State(), m2.State())

		m2.SubmitMove("u2", cricket.Two)
		assert.Equal(t, 2, m2.State().Balls)
	})

	t.Run("lookup reads without registering", func(t *testing.T) {
		svc, persist, _ := newTestService(0)
		m, _, _ := startMatch(t, svc)
		m.SubmitMove("u1", cricket.Six)
		m.SubmitMove("u2", cricket.One)

		svc2 := NewMatchService(Config{}, persist, nil, discardLogger())
		st, ok, err := svc2.Lookup(ctx, strings.ToLower(m.Code()))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.State(), st)
		assert.Zero(t, svc2.Len())

		_, ok, err = svc2.Lookup(ctx, "NOPE1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("full stored match is not registered", func(t *testing.T) {
		svc, persist, _ := newTestService(0)
		m, _, _ := startMatch(t, svc)

		svc2 := NewMatchService(Config{}, persist, nil, discardLogger())
		_, err := svc2.Join(ctx, m.Code(), "u3", "Carol", newTestConn())
		assert.ErrorIs(t, err, cricket.ErrMatchFull)
		svc2.Leave(ctx, m.Code(), "u3")
		assert.Zero(t, svc2.Len())

		require.NoError(t, persist.Delete(ctx, m.Code()))
		_, err = svc2.Join(ctx, m.Code(), "u4", "Dave", newTestConn())
		assert.ErrorIs(t, err, ErrMatchNotFound)
		assert.Zero(t, svc2.Len())
	})

	t.Run("waiting stored match accepts a joiner", func(t *testing.T) {
		svc, persist, _ := newTestService(0)
		m, err := svc.Create(ctx, CreateRequest{PlayerName: "Alice"}, "u1", newTestConn())
		require.NoError(t, err)

		svc2 := NewMatchService(Config{}, persist, nil, discardLogger())
		c2 := newTestConn()
		m2, err := svc2.Join(ctx, m.Code(), "u2", "Bob", c2)
		require.NoError(t, err)
		assert.Equal(t, 1, svc2.Len())
		require.Len(t, m2.State().Players, 2)
		assert.Contains(t, types(readEnvelopesNonBlocking(c2)), MsgGameUpdate)

		// the joiner leaving removes the restored match with its snapshot
		svc2.Leave(ctx, m.Code(), "u2")
		assert.Zero(t, svc2.Len())
		_, found, err := persist.Load(ctx, m.Code())
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestConfig_PlayerName(t *testing.T) {
	cfg := Config{}.withDefaults()
	cases := []struct {
		in, want string
	}{
		{"", "Player 1"},
		{"   ", "Player 1"},
		{" Alice ", "Alice"},
		{"ABCDEFGHIJKLMNOPQRST", "ABCDEFGHIJKLMNO"},
		{"Ünïcödé-Ñame-Long-One", "Ünïcödé-Ñame-Lo"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cfg.playerName(tc.in, "Player 1"), tc.in)
	}
}
