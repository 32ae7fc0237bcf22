package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/relay"
)

// WSHandler authenticates the handshake and hands the connection to a
// Session. Authentication happens before the upgrade: a missing or
// invalid credential is rejected with 401 and no event from that caller
// is ever processed.
type WSHandler struct {
	log        *slog.Logger
	validator  *auth.TokenValidator
	router     *relay.Router
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewWSHandler(log *slog.Logger, validator *auth.TokenValidator,
	router *relay.Router, sendBuffer int) *WSHandler {
	return &WSHandler{
		log:       log,
		validator: validator,
		router:    router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The issuer's clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.validator.Validate(auth.CredentialFromRequest(r))
	if err != nil {
		h.log.Warn("handshake rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication error: "+err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := NewSession(h.log, conn, identity, h.router, h.sendBuffer)
	h.log.Info("client connected", "user", identity.ID, "remote", r.RemoteAddr)

	// The request context dies when ServeHTTP returns, so the session
	// runs on the handler goroutine and lives as long as its transport.
	session.Run(context.Background())
}
