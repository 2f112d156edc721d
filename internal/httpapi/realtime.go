package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/rs/zerolog/log"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/hub"
	"autoflow/workshop-service/internal/models"
)

const (
	RealtimePrefix = "/realtime"

	closeMissingSession = 4001
	closeInvalidSession = 4002
	closeAccessDenied   = 4003
)

// RealtimeHandler serves the SockJS endpoint. Clients authenticate with a
// bearer header or a token query parameter and start subscribed to their
// own branch.
func RealtimeHandler(authService *auth.Service, h *hub.Hub) http.Handler {
	return sockjs.NewHandler(RealtimePrefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		req := session.Request()
		token := sessionTokenFromRequest(req)
		if token == "" {
			token = strings.TrimSpace(req.URL.Query().Get("token"))
		}
		if token == "" {
			_ = session.Close(closeMissingSession, "missing session")
			return
		}
		user, _, err := authService.Authenticate(context.Background(), token)
		if err != nil {
			_ = session.Close(closeInvalidSession, "invalid session")
			return
		}

		client := &hub.Client{
			ID:           uuid.NewString(),
			Send:         make(chan []byte, 16),
			Subscription: defaultSubscription(user),
		}
		h.Register(client)
		defer h.Unregister(client)
		log.Debug().Str("client_id", client.ID).Str("user", user.Username).Msg("realtime client connected")

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, defaultSubscription(user))
				continue
			}
			if !subscriptionAllowed(user, parsed.Branch) {
				_ = session.Close(closeAccessDenied, "access denied")
				return
			}
			h.UpdateSubscription(client, hub.Subscription{Branch: strings.TrimSpace(parsed.Branch)})
		}
	})
}

func defaultSubscription(user models.User) hub.Subscription {
	if user.SeesAllBranches() {
		return hub.Subscription{}
	}
	return hub.Subscription{Branch: user.Branch}
}

func subscriptionAllowed(user models.User, branch string) bool {
	if user.SeesAllBranches() {
		return true
	}
	return strings.TrimSpace(branch) == user.Branch
}
