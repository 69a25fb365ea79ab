package ws

import (
	"context"
	"net/http"

	"github.com/stedixon/KafkaChat/internal/hub"
	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

type WSConfig struct {
	Hub         *hub.Hub
	ChatService service.ChatService
	RootCtx     context.Context
}

// RegisterRoutes mounts the connection endpoint on the mux.
func RegisterRoutes(mux *http.ServeMux, cfg WSConfig) {
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("GET /ws/message/{chatRoom}", HandleWebSocket(cfg.RootCtx, cfg.Hub, cfg.ChatService, log))
}
