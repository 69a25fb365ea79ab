package rest

import (
	"context"
	"net/http"

	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

type RESTConfig struct {
	ChatService service.ChatService
	RootCtx     context.Context
}

// RegisterRoutes mounts the user, chat room, and message endpoints.
func RegisterRoutes(mux *http.ServeMux, cfg RESTConfig) {
	h := NewHandler(cfg.ChatService, logger.FromContext(cfg.RootCtx).WithModule("rest"))

	mux.HandleFunc("POST /user/create", h.CreateUser)
	mux.HandleFunc("POST /user/login", h.Login)
	mux.HandleFunc("GET /user/{id}", h.GetUser)

	mux.HandleFunc("POST /chatRoom/create", h.CreateChatRoom)
	mux.HandleFunc("GET /chatRoom/id/{id}", h.GetChatRoom)
	mux.HandleFunc("PUT /chatRoom/join/roomId/{roomId}/userId/{userId}", h.JoinChatRoom)
	mux.HandleFunc("GET /chatRoom/participants/{id}", h.GetParticipants)

	mux.HandleFunc("POST /message/chatRoom/{chatRoom}", h.SendMessage)
	mux.HandleFunc("GET /message/chatRoom/{chatRoom}", h.GetMessages)
}
