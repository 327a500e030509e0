package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"example.com/handcricket/internal/cricket"
	"github.com/gorilla/websocket"
)

type Config struct {
	DefaultOvers   int // 0 => unlimited when the creator sends no limit
	MaxOvers       int // 0 => no upper bound
	NameMaxLen     int
	AIName         string
	AllowedOrigins []string // empty => any origin
	PersistTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.NameMaxLen <= 0 {
		c.NameMaxLen = 15
	}
	if c.AIName == "" {
		c.AIName = "Computer"
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 2 * time.Second
	}
	return c
}

type Server struct {
	cfg      Config
	matches  *MatchService
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg Config, matches *MatchService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:     cfg.withDefaults(),
		matches: matches,
		log:     log,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/matches/", s.handleGetMatch)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// handleGetMatch serves the public state: GET /api/matches/{code}
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	code, ok := matchCodeFromPath(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorPayload{Code: "bad_input", Message: "invalid game code"})
		return
	}

	st, found, err := s.matches.Lookup(r.Context(), code)
	if err != nil {
		s.log.Error("match lookup failed", "code", code, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorPayload{Code: "storage_error", Message: "storage error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorPayload{Code: "not_found", Message: ErrMatchNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

const matchesPrefix = "/api/matches/"

// matchCodeFromPath extracts and normalises the code in /api/matches/{code}.
func matchCodeFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, matchesPrefix) {
		return "", false
	}
	code := normalizeCode(strings.TrimPrefix(path, matchesPrefix))
	if len(code) != codeLen {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return "", false
		}
	}
	return code, true
}

// errorCode maps registry and game errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, cricket.ErrMatchFull):
		return "game_full"
	case errors.Is(err, cricket.ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, cricket.ErrNotTossWinner):
		return "not_toss_winner"
	default:
		return "bad_input"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
