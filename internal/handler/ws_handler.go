/*
Package handler provides the HTTP handler function for presence WebSocket upgrades.

HandleWebSocket rate limits the caller, validates the userId query parameter against the
account directory, upgrades the connection, and hands it to the presence hub.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"hzpresence/internal/app/hub"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/limiter"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/resp"
	"hzpresence/internal/pkg/wire"
)

// HandleWebSocket creates an HTTP HandlerFunc to process presence connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		userID := r.URL.Query().Get(wire.UserIDParam)
		if userID == "" {
			logx.Warn("WebSocket request rejected: Missing userId query parameter")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !deps.Users.Exists(userID) {
			logx.Info("WebSocket connection rejected: Unknown user.", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("Presence connection established", "user_id", userID)

		hub.NewClient(deps.Hub, conn, userID).Serve()
	}
}
