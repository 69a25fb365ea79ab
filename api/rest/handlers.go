package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/internal/store"
	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

// Handler serves the user, chat room, and message endpoints.
type Handler struct {
	svc service.ChatService
	log logger.Logger
}

func NewHandler(svc service.ChatService, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type createRoomRequest struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	AdminID     string `json:"adminId"`
}

type sendMessageRequest struct {
	UserID string `json:"userId"`
	Body   string `json:"body"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input domain.RegisterUser
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.svc.Signup(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.LoginUser
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.svc.Authenticate(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) CreateChatRoom(w http.ResponseWriter, r *http.Request) {
	var input createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), input.DisplayName, input.Description, input.AdminID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, room)
}

func (h *Handler) GetChatRoom(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetRoomDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, details)
}

func (h *Handler) JoinChatRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	userID := r.PathValue("userId")

	if err := h.svc.JoinRoom(r.Context(), roomID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.RoomParticipants(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	stored, err := h.svc.SendMessage(r.Context(), r.PathValue("chatRoom"), input.UserID, input.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.MessageHistory(r.Context(), r.PathValue("chatRoom"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("failed to write response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrExists):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrNotMember):
		h.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err)
	default:
		h.writeError(w, http.StatusBadRequest, err)
	}
}
