package game

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 64
	pingInterval = 25 * time.Second
)

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// sendRaw queues a frame; slow readers lose frames instead of blocking the
// match.
func (c *ClientConn) sendRaw(b []byte) {
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *ClientConn) sendError(code, message string) {
	b, _ := json.Marshal(Envelope{
		Type:    MsgError,
		Payload: mustJSON(ErrorPayload{Code: code, Message: message}),
	})
	c.sendRaw(b)
}

func (c *ClientConn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// handleWS serves one player connection. The connection gets a fresh player
// id and takes part in at most one live match at a time.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	cc := newClientConn(ws)
	playerID := uuid.NewString()
	go cc.writeLoop()

	var current *Match
	// сокет закрыт: выходим из матча (активный матч засчитывается сопернику)
	defer func() {
		if current != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
			s.matches.Leave(ctx, current.Code(), playerID)
			cancel()
		}
		cc.Close()
	}()

	busy := func() bool {
		if current != nil && !current.Finished() {
			cc.sendError("already_joined", "already in a game")
			return true
		}
		return false
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read failed", "player", playerID, "err", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			cc.sendError("bad_json", "invalid json")
			continue
		}

		switch env.Type {
		case MsgCreateGame:
			if busy() {
				continue
			}
			var p CreateGamePayload
			if err := decodePayload(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid payload")
				continue
			}
			m, err := s.matches.Create(r.Context(), CreateRequest{
				PlayerName: p.PlayerName,
				OverLimit:  p.OverLimit,
				VsAI:       p.VsAI,
			}, playerID, cc)
			if err != nil {
				cc.sendError(errorCode(err), err.Error())
				continue
			}
			current = m

		case MsgJoinGame:
			if busy() {
				continue
			}
			var p JoinGamePayload
			if err := decodePayload(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid payload")
				continue
			}
			m, err := s.matches.Join(r.Context(), p.GameCode, playerID, p.PlayerName, cc)
			if err != nil {
				cc.sendError(errorCode(err), err.Error())
				continue
			}
			current = m

		case MsgMakeMove:
			var p MakeMovePayload
			if err := decodePayload(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid move")
				continue
			}
			if current != nil {
				current.SubmitMove(playerID, p.Move)
			}

		case MsgChooseToss:
			var p ChooseTossPayload
			if err := decodePayload(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid payload")
				continue
			}
			if current == nil {
				cc.sendError("not_found", ErrMatchNotFound.Error())
				continue
			}
			if err := current.ChooseToss(playerID, p.Choice); err != nil {
				cc.sendError(errorCode(err), err.Error())
			}

		default:
			cc.sendError("unknown_type", "unknown message type")
		}
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(raw, v)
}
