/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, validating
identity parameters, upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"coachlink/internal/app/signal"
	"coachlink/internal/pkg/auth/jwt"
	"coachlink/internal/pkg/errs"
	"coachlink/internal/pkg/limiter"
	"coachlink/internal/pkg/logx"
	"coachlink/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
//
// Identity comes from a platform JWT passed as the "token" query parameter
// (browsers cannot set an Authorization header on a WebSocket handshake).
// The optional "nn" and "img" parameters carry the display name and avatar
// shown to call peers.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		query := r.URL.Query()

		tokenString := query.Get("token")
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: Missing token query parameter")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid token", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		participant := payload.Participant()
		if participant.ID == "" || !participant.Role.Valid() {
			logx.Warn("WebSocket request rejected: Token carries no usable identity")
			resp.RespondError(w, r, errs.NewError(errs.ErrIdentityInvalid))
			return
		}

		participant.Name = query.Get("nn")
		participant.Image = query.Get("img")

		logx.Info("Attempting to upgrade connection", "user_id", participant.ID, "role", string(participant.Role))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := signal.NewClient(deps.Hub, conn, participant)

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "client_id", participant.ID)

		deps.Hub.Register(client)

		client.ReadPump()
	}
}
