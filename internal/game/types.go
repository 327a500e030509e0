package game

import (
	"encoding/json"

	"example.com/handcricket/internal/cricket"
)

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// входящие
const (
	MsgCreateGame = "create_game"
	MsgJoinGame   = "join_game"
	MsgMakeMove   = "make_move"
	MsgChooseToss = "choose_toss"
)

// исходящие
const (
	MsgGameCreated       = "game_created"
	MsgGameUpdate        = "game_update"
	MsgTossResult        = "toss_result"
	MsgRequestTossChoice = "request_toss_choice"
	MsgError             = "error"
)

type CreateGamePayload struct {
	PlayerName string `json:"playerName"`
	OverLimit  *int   `json:"overLimit"` // null => unlimited
	VsAI       bool   `json:"vsAI"`
}

type JoinGamePayload struct {
	GameCode   string `json:"gameCode"`
	PlayerName string `json:"playerName"`
}

type MakeMovePayload struct {
	Move cricket.Move `json:"move"`
}

type ChooseTossPayload struct {
	Choice cricket.TossChoice `json:"choice"`
}

// StatePayload is the match state personalised with the receiving player.
type StatePayload struct {
	cricket.State
	You string `json:"you"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
