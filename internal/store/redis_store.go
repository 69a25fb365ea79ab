package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stedixon/KafkaChat/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Store persists users, rooms, membership, and message history in Redis.
// All relations are id-based; entities never embed each other.
type Store struct {
	client *redis.Client
}

func NewStore(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// persistedUser keeps the password hash out of the API-facing User type.
type persistedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

func userKey(id string) string { return "user:" + id }
func usernameKey(name string) string { return "username:" + name }
func roomKey(id string) string { return "room:" + id }
func roomNameKey(name string) string { return "roomname:" + name }
func membersKey(roomID string) string { return "room:" + roomID + ":members" }
func messagesKey(roomID string) string { return "room:" + roomID + ":messages" }

// CreateUser stores the user and claims its username. Fails with ErrExists
// when the username is taken.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	ok, err := s.client.SetNX(ctx, usernameKey(user.Username), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim username: %w", err)
	}
	if !ok {
		return fmt.Errorf("username %s: %w", user.Username, ErrExists)
	}

	data, err := json.Marshal(persistedUser{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	return s.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	var pu persistedUser
	if err := json.Unmarshal(data, &pu); err != nil {
		return domain.User{}, fmt.Errorf("failed to decode user: %w", err)
	}
	user := pu.User
	user.PasswordHash = pu.PasswordHash
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	id, err := s.client.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to resolve username: %w", err)
	}
	return s.GetUser(ctx, id)
}

// CreateRoom stores the room and claims its display name.
func (s *Store) CreateRoom(ctx context.Context, room domain.ChatRoom) error {
	ok, err := s.client.SetNX(ctx, roomNameKey(room.DisplayName), room.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim room name: %w", err)
	}
	if !ok {
		return fmt.Errorf("chat room %s: %w", room.DisplayName, ErrExists)
	}

	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to serialize room: %w", err)
	}
	if err := s.client.Set(ctx, roomKey(room.ID), data, 0).Err(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, "rooms", room.ID).Err()
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.ChatRoom, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ChatRoom{}, fmt.Errorf("chat room %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.ChatRoom{}, fmt.Errorf("failed to load room: %w", err)
	}

	var room domain.ChatRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return domain.ChatRoom{}, fmt.Errorf("failed to decode room: %w", err)
	}
	return room, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, "rooms").Result()
}

// AddMember adds the user to the room's membership set. Fails with
// ErrExists when the user is already a member.
func (s *Store) AddMember(ctx context.Context, roomID, userID string) error {
	added, err := s.client.SAdd(ctx, membersKey(roomID), userID).Result()
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("user %s in room %s: %w", userID, roomID, ErrExists)
	}
	return nil
}

func (s *Store) IsRoomMember(ctx context.Context, userID, roomID string) (bool, error) {
	return s.client.SIsMember(ctx, membersKey(roomID), userID).Result()
}

func (s *Store) RoomParticipants(ctx context.Context, roomID string) ([]string, error) {
	return s.client.SMembers(ctx, membersKey(roomID)).Result()
}

func (s *Store) ParticipantCount(ctx context.Context, roomID string) (int, error) {
	n, err := s.client.SCard(ctx, membersKey(roomID)).Result()
	return int(n), err
}

// AppendMessage appends the message to the room's history list and returns
// it with its position in that list.
func (s *Store) AppendMessage(ctx context.Context, roomID string, msg domain.ChatMessage) (domain.StoredMessage, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("failed to serialize message: %w", err)
	}

	length, err := s.client.RPush(ctx, messagesKey(roomID), data).Result()
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("failed to append message: %w", err)
	}

	return domain.StoredMessage{ChatMessage: msg, Sequence: length - 1}, nil
}

// FindMessagesByRoom returns the room's history in append order.
func (s *Store) FindMessagesByRoom(ctx context.Context, roomID string) ([]domain.StoredMessage, error) {
	raw, err := s.client.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	out := make([]domain.StoredMessage, 0, len(raw))
	for i, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, domain.StoredMessage{ChatMessage: msg, Sequence: int64(i)})
	}
	return out, nil
}

// FlushAll clears the entire database. Test helper.
func (s *Store) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
