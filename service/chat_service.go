package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/pkg/logger"
)

var (
	ErrNotMember          = errors.New("user is not a member of the room")
	ErrInvalidCredentials = errors.New("unable to login")
)

// MessageStore is the persistence collaborator consumed by the service.
type MessageStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	CreateRoom(ctx context.Context, room domain.ChatRoom) error
	GetRoom(ctx context.Context, id string) (domain.ChatRoom, error)
	ListRooms(ctx context.Context) ([]string, error)
	AddMember(ctx context.Context, roomID, userID string) error
	IsRoomMember(ctx context.Context, userID, roomID string) (bool, error)
	RoomParticipants(ctx context.Context, roomID string) ([]string, error)
	ParticipantCount(ctx context.Context, roomID string) (int, error)

	AppendMessage(ctx context.Context, roomID string, msg domain.ChatMessage) (domain.StoredMessage, error)
	FindMessagesByRoom(ctx context.Context, roomID string) ([]domain.StoredMessage, error)
}

// Publisher appends messages to the durable chat stream.
type Publisher interface {
	PublishMessage(msg domain.ChatMessage) error
}

// ChatService defines the application operations over users, rooms, and
// messages.
type ChatService interface {
	Signup(ctx context.Context, input domain.RegisterUser) (domain.User, error)
	Authenticate(ctx context.Context, input domain.LoginUser) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	CreateRoom(ctx context.Context, displayName, description, adminID string) (domain.ChatRoom, error)
	GetRoomDetails(ctx context.Context, id string) (domain.ChatRoomDetails, error)
	JoinRoom(ctx context.Context, roomID, userID string) error
	RoomParticipants(ctx context.Context, roomID string) ([]domain.User, error)
	IsRoomMember(ctx context.Context, userID, roomID string) (bool, error)

	SendMessage(ctx context.Context, roomID, userID, body string) (domain.StoredMessage, error)
	MessageHistory(ctx context.Context, roomID string) ([]domain.StoredMessage, error)
}

type chatService struct {
	store     MessageStore
	publisher Publisher
	logger    logger.Logger
}

func NewChatService(ctx context.Context, store MessageStore, publisher Publisher) ChatService {
	return &chatService{
		store:     store,
		publisher: publisher,
		logger:    logger.FromContext(ctx).WithModule("service"),
	}
}

func (c *chatService) Signup(ctx context.Context, input domain.RegisterUser) (domain.User, error) {
	if strings.TrimSpace(input.Username) == "" || input.Password == "" {
		return domain.User{}, fmt.Errorf("username and password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
	}
	if err := c.store.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *chatService) Authenticate(ctx context.Context, input domain.LoginUser) (domain.User, error) {
	user, err := c.store.GetUserByUsername(ctx, input.Username)
	if err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (c *chatService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return c.store.GetUser(ctx, id)
}

func (c *chatService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return c.store.GetUserByUsername(ctx, username)
}

func (c *chatService) CreateRoom(ctx context.Context, displayName, description, adminID string) (domain.ChatRoom, error) {
	if strings.TrimSpace(displayName) == "" {
		return domain.ChatRoom{}, fmt.Errorf("display name cannot be empty")
	}
	if _, err := c.store.GetUser(ctx, adminID); err != nil {
		return domain.ChatRoom{}, fmt.Errorf("admin lookup failed: %w", err)
	}

	room := domain.ChatRoom{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Description: description,
		AdminID:     adminID,
	}
	if err := c.store.CreateRoom(ctx, room); err != nil {
		return domain.ChatRoom{}, err
	}

	// The admin is the room's first member.
	if err := c.store.AddMember(ctx, room.ID, adminID); err != nil {
		c.logger.Errorf("failed to add admin %s to room %s: %v", adminID, room.ID, err)
	}
	return room, nil
}

func (c *chatService) GetRoomDetails(ctx context.Context, id string) (domain.ChatRoomDetails, error) {
	room, err := c.store.GetRoom(ctx, id)
	if err != nil {
		return domain.ChatRoomDetails{}, err
	}
	count, err := c.store.ParticipantCount(ctx, id)
	if err != nil {
		return domain.ChatRoomDetails{}, err
	}

	return domain.ChatRoomDetails{
		ID:               room.ID,
		DisplayName:      room.DisplayName,
		Description:      room.Description,
		AdminID:          room.AdminID,
		ParticipantCount: count,
	}, nil
}

func (c *chatService) JoinRoom(ctx context.Context, roomID, userID string) error {
	if _, err := c.store.GetRoom(ctx, roomID); err != nil {
		return err
	}
	if _, err := c.store.GetUser(ctx, userID); err != nil {
		return err
	}
	return c.store.AddMember(ctx, roomID, userID)
}

func (c *chatService) RoomParticipants(ctx context.Context, roomID string) ([]domain.User, error) {
	ids, err := c.store.RoomParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := c.store.GetUser(ctx, id)
		if err != nil {
			c.logger.Warnf("room %s references missing user %s", roomID, id)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (c *chatService) IsRoomMember(ctx context.Context, userID, roomID string) (bool, error) {
	return c.store.IsRoomMember(ctx, userID, roomID)
}

// SendMessage assigns the message its id and timestamp exactly once,
// persists it, then hands it to the stream publisher. The store write
// stands even when the stream submit fails; the failure is only logged.
func (c *chatService) SendMessage(ctx context.Context, roomID, userID, body string) (domain.StoredMessage, error) {
	if strings.TrimSpace(body) == "" {
		return domain.StoredMessage{}, fmt.Errorf("message body cannot be empty")
	}
	if _, err := c.store.GetRoom(ctx, roomID); err != nil {
		return domain.StoredMessage{}, err
	}

	member, err := c.store.IsRoomMember(ctx, userID, roomID)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	if !member {
		return domain.StoredMessage{}, ErrNotMember
	}

	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return domain.StoredMessage{}, err
	}

	msg := domain.ChatMessage{
		RoomID:    roomID,
		UserID:    userID,
		MessageID: uuid.NewString(),
		Username:  user.Username,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}

	stored, err := c.store.AppendMessage(ctx, roomID, msg)
	if err != nil {
		return domain.StoredMessage{}, err
	}

	if err := c.publisher.PublishMessage(msg); err != nil {
		c.logger.Errorf("failed to publish message %s: %v", msg.MessageID, err)
	}
	return stored, nil
}

func (c *chatService) MessageHistory(ctx context.Context, roomID string) ([]domain.StoredMessage, error) {
	if _, err := c.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return c.store.FindMessagesByRoom(ctx, roomID)
}
