package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"lan-chat/domain"
	"lan-chat/services"
	"lan-chat/sink"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// WsHandler upgrades authenticated requests to the realtime channel and runs
// the read/write pumps for each session.
type WsHandler struct {
	log        *slog.Logger
	auth       services.IAuthService
	chat       services.IChatService
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewWsHandler(log *slog.Logger, auth services.IAuthService, chat services.IChatService, bufferSize int) *WsHandler {
	return &WsHandler{
		log:  log,
		auth: auth,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// LAN deployment: cross-origin pages may not open sessions.
			CheckOrigin: sameHostOrigin,
		},
		bufferSize: bufferSize,
	}
}

func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return parsed.Host == r.Host
}

// ServeHTTP authenticates via token (query param or cookie), upgrades, joins
// the hub, and blocks in the read pump until the connection dies.
func (h *WsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	username, err := h.auth.Identity(services.Token(token))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	connID := domain.NewConnectionID()
	snk := sink.NewSessionSink(h.bufferSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.chat.Join(ctx, connID, username, snk); err != nil {
		h.log.Warn("Join rejected", "err", err)
		_ = conn.Close()
		return
	}

	go h.writePump(ctx, conn, snk)
	h.readPump(ctx, conn, connID, username)

	// Leaving must survive request-context cancellation, otherwise a dead
	// connection could linger in the presence set.
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer leaveCancel()
	if err := h.chat.Leave(leaveCtx, connID); err != nil {
		h.log.Error("Leave failed, presence may be stale", "conn", connID, "err", err)
	}
}

// readPump consumes client events until the connection closes. Every send
// hands off to the hub; ordering is fixed there, not here.
func (h *WsHandler) readPump(ctx context.Context, conn *websocket.Conn, connID domain.ConnectionID, username string) {
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("WebSocket closed unexpectedly", "conn", connID, "err", err)
			}
			return
		}

		var in inboundEvent
		if err := json.Unmarshal(raw, &in); err != nil {
			h.log.Debug("Discarding malformed client event", "conn", connID, "err", err)
			continue
		}
		if in.Event != "send_message" {
			continue
		}

		if err := h.chat.Post(ctx, connID, username, in.Data.Message); err != nil {
			h.log.Debug("Post not accepted", "conn", connID, "err", err)
			return
		}
	}
}

// writePump drains the session sink into the socket and keeps the connection
// alive with pings. Exits when the sink context dies or a write fails.
func (h *WsHandler) writePump(ctx context.Context, conn *websocket.Conn, snk *sink.SessionSink) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case evt := <-snk.Events:
			wire, ok := toWireEvent(evt)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wire); err != nil {
				h.log.Debug("Write failed, dropping session", "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sessionToken extracts the token from the query string (the way browser
// WebSocket clients pass it) or from the session cookie.
func sessionToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
