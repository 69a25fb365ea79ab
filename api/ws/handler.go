package ws

import (
	"context"
	"net/http"

	gws "github.com/gorilla/websocket"

	"github.com/stedixon/KafkaChat/internal/hub"
	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for testing; restrict in production.
	},
}

// HandleWebSocket terminates a duplex connection on /ws/message/{chatRoom}.
// The trailing path segment binds the connection to exactly one room; the
// caller identifies itself with the username query parameter and must be a
// member of the room.
func HandleWebSocket(
	rootCtx context.Context,
	h *hub.Hub,
	chatService service.ChatService,
	log logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("chatRoom")
		username := r.URL.Query().Get("username")
		if username == "" {
			http.Error(w, "username is required", http.StatusBadRequest)
			return
		}

		user, err := chatService.GetUserByUsername(r.Context(), username)
		if err != nil {
			http.Error(w, "unknown user", http.StatusUnauthorized)
			return
		}
		if _, err := chatService.GetRoomDetails(r.Context(), roomID); err != nil {
			http.Error(w, "unknown chat room", http.StatusNotFound)
			return
		}

		member, err := chatService.IsRoomMember(r.Context(), user.ID, roomID)
		if err != nil {
			http.Error(w, "membership check failed", http.StatusInternalServerError)
			return
		}
		if !member {
			http.Error(w, "not a member of this room", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("[WS HANDLER] Upgrade error: %v", err)
			return
		}

		client := newConnection(rootCtx, h, chatService, conn, roomID, user.ID, username, log)
		log.Infof("[WS HANDLER] New connection from %s (user=%s room=%s)", conn.RemoteAddr(), username, roomID)
		client.run()
	}
}
