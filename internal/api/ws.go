package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/frontdeskai/frontdesk/internal/identity"
	"github.com/frontdeskai/frontdesk/internal/profile"
)

// wsChatFrame is one inbound frame from the embedded widget.
type wsChatFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// wsReplyFrame is one outbound frame.
type wsReplyFrame struct {
	Type           string `json:"type"`
	Reply          string `json:"reply,omitempty"`
	Phase          string `json:"phase,omitempty"`
	LeadDispatched bool   `json:"lead_dispatched,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HandleChatSocket handles GET /ws/chat. It runs the same turn loop as
// POST /api/chat over a persistent connection so the widget avoids a
// request round-trip per message. client_id comes from the query string;
// the session follows the anon identity cookie.
func (h *Handler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		Error(w, http.StatusBadRequest, "client_id is required")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = identity.SessionIDFromContext(r.Context())
	}
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	p, err := h.profiles.Get(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, profile.ErrUnknownClient) {
			Error(w, http.StatusNotFound, "unknown client")
			return
		}
		slog.Error("failed to load client profile", "client_id", clientID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load client profile")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	limitKey := identity.VisitorIDFromContext(r.Context())
	if limitKey == "" {
		limitKey = sessionID
	}

	slog.Info("chat socket opened", "client_id", clientID, "session_id", sessionID)

	ctx := r.Context()
	sess := h.registry.GetOrCreate(sessionID, clientID)

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "session_id", sessionID)
			} else if ctx.Err() == nil {
				slog.Warn("websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var frame wsChatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if werr := h.writeFrame(ctx, ws, wsReplyFrame{Type: "error", Error: "invalid frame"}); werr != nil {
				return
			}
			continue
		}

		switch frame.Type {
		case "ping":
			if err := h.writeFrame(ctx, ws, wsReplyFrame{Type: "pong"}); err != nil {
				return
			}
		case "message", "":
			if frame.Message == "" {
				if err := h.writeFrame(ctx, ws, wsReplyFrame{Type: "error", Error: "message is required"}); err != nil {
					return
				}
				continue
			}
			if !h.limiter.Allow(limitKey) {
				if err := h.writeFrame(ctx, ws, wsReplyFrame{Type: "error", Error: "rate limit exceeded"}); err != nil {
					return
				}
				continue
			}

			result := h.machine.ProcessTurn(ctx, p, sess, frame.Message)
			reply := wsReplyFrame{
				Type:           "reply",
				Reply:          result.Reply,
				Phase:          result.Phase.String(),
				LeadDispatched: result.LeadDispatched,
			}
			if err := h.writeFrame(ctx, ws, reply); err != nil {
				slog.Debug("websocket write error", "error", err, "session_id", sessionID)
				return
			}
		}
	}
}

// wsWriteTimeout bounds a single frame write so a stalled client cannot
// pin the handler goroutine.
const wsWriteTimeout = 10 * time.Second

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}
