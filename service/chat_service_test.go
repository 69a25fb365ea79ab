package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stedixon/KafkaChat/internal/domain"
)

// fakeStore is an in-memory MessageStore.
type fakeStore struct {
	users     map[string]domain.User
	usernames map[string]string
	rooms     map[string]domain.ChatRoom
	members   map[string]map[string]bool
	messages  map[string][]domain.ChatMessage

	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]domain.User),
		usernames: make(map[string]string),
		rooms:     make(map[string]domain.ChatRoom),
		members:   make(map[string]map[string]bool),
		messages:  make(map[string][]domain.ChatMessage),
	}
}

var errNotFound = errors.New("not found")

func (f *fakeStore) CreateUser(_ context.Context, user domain.User) error {
	if _, ok := f.usernames[user.Username]; ok {
		return fmt.Errorf("username taken")
	}
	f.users[user.ID] = user
	f.usernames[user.Username] = user.ID
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, errNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	id, ok := f.usernames[username]
	if !ok {
		return domain.User{}, errNotFound
	}
	return f.GetUser(ctx, id)
}

func (f *fakeStore) CreateRoom(_ context.Context, room domain.ChatRoom) error {
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeStore) GetRoom(_ context.Context, id string) (domain.ChatRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return domain.ChatRoom{}, errNotFound
	}
	return room, nil
}

func (f *fakeStore) ListRooms(_ context.Context) ([]string, error) {
	var out []string
	for id := range f.rooms {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) AddMember(_ context.Context, roomID, userID string) error {
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[string]bool)
	}
	f.members[roomID][userID] = true
	return nil
}

func (f *fakeStore) IsRoomMember(_ context.Context, userID, roomID string) (bool, error) {
	return f.members[roomID][userID], nil
}

func (f *fakeStore) RoomParticipants(_ context.Context, roomID string) ([]string, error) {
	var out []string
	for id := range f.members[roomID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) ParticipantCount(_ context.Context, roomID string) (int, error) {
	return len(f.members[roomID]), nil
}

func (f *fakeStore) AppendMessage(_ context.Context, roomID string, msg domain.ChatMessage) (domain.StoredMessage, error) {
	if f.appendErr != nil {
		return domain.StoredMessage{}, f.appendErr
	}
	f.messages[roomID] = append(f.messages[roomID], msg)
	return domain.StoredMessage{ChatMessage: msg, Sequence: int64(len(f.messages[roomID]) - 1)}, nil
}

func (f *fakeStore) FindMessagesByRoom(_ context.Context, roomID string) ([]domain.StoredMessage, error) {
	out := make([]domain.StoredMessage, 0, len(f.messages[roomID]))
	for i, msg := range f.messages[roomID] {
		out = append(out, domain.StoredMessage{ChatMessage: msg, Sequence: int64(i)})
	}
	return out, nil
}

// fakePublisher records published messages.
type fakePublisher struct {
	published []domain.ChatMessage
	err       error
}

func (f *fakePublisher) PublishMessage(msg domain.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func setupService(t *testing.T) (ChatService, *fakeStore, *fakePublisher) {
	t.Helper()
	st := newFakeStore()
	pub := &fakePublisher{}
	return NewChatService(context.Background(), st, pub), st, pub
}

func signupAndRoom(t *testing.T, svc ChatService) (domain.User, domain.ChatRoom) {
	t.Helper()
	ctx := context.Background()

	user, err := svc.Signup(ctx, domain.RegisterUser{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	room, err := svc.CreateRoom(ctx, "general", "everything", user.ID)
	require.NoError(t, err)
	return user, room
}

func TestSignupHashesPassword(t *testing.T) {
	svc, st, _ := setupService(t)

	user, err := svc.Signup(context.Background(), domain.RegisterUser{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	stored := st.users[user.ID]
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.RegisterUser{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, domain.LoginUser{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(ctx, domain.LoginUser{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, domain.LoginUser{Username: "nobody", Password: "secret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateRoomAddsAdminAsMember(t *testing.T) {
	svc, _, _ := setupService(t)
	user, room := signupAndRoom(t, svc)

	member, err := svc.IsRoomMember(context.Background(), user.ID, room.ID)
	require.NoError(t, err)
	assert.True(t, member)

	details, err := svc.GetRoomDetails(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, details.ParticipantCount)
	assert.Equal(t, user.ID, details.AdminID)
}

func TestSendMessageAssignsIdOnceAndPublishes(t *testing.T) {
	svc, st, pub := setupService(t)
	user, room := signupAndRoom(t, svc)

	stored, err := svc.SendMessage(context.Background(), room.ID, user.ID, "hi")
	require.NoError(t, err)

	assert.NotEmpty(t, stored.MessageID)
	assert.Equal(t, room.ID, stored.RoomID)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, "alice", stored.Username)
	assert.False(t, stored.Timestamp.IsZero())

	// The persisted record and the published record carry the same id.
	require.Len(t, pub.published, 1)
	assert.Equal(t, stored.MessageID, pub.published[0].MessageID)
	require.Len(t, st.messages[room.ID], 1)
	assert.Equal(t, stored.MessageID, st.messages[room.ID][0].MessageID)
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	svc, _, pub := setupService(t)
	_, room := signupAndRoom(t, svc)

	outsider, err := svc.Signup(context.Background(), domain.RegisterUser{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), room.ID, outsider.ID, "hi")
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Empty(t, pub.published)
}

func TestSendMessageKeepsStoreRecordOnPublishFailure(t *testing.T) {
	svc, st, pub := setupService(t)
	user, room := signupAndRoom(t, svc)

	pub.err = fmt.Errorf("broker down")

	stored, err := svc.SendMessage(context.Background(), room.ID, user.ID, "hi")
	require.NoError(t, err, "publish failure must not surface to the caller")
	assert.Len(t, st.messages[room.ID], 1)
	assert.Equal(t, "hi", stored.Body)
}

func TestSendMessageFailsWhenStoreFails(t *testing.T) {
	svc, st, pub := setupService(t)
	user, room := signupAndRoom(t, svc)

	st.appendErr = fmt.Errorf("store down")

	_, err := svc.SendMessage(context.Background(), room.ID, user.ID, "hi")
	require.Error(t, err)
	assert.Empty(t, pub.published, "nothing may be published without a durable store record")
}

func TestSendMessageValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	user, room := signupAndRoom(t, svc)

	_, err := svc.SendMessage(context.Background(), room.ID, user.ID, "   ")
	assert.Error(t, err)

	_, err = svc.SendMessage(context.Background(), "missing-room", user.ID, "hi")
	assert.Error(t, err)
}

func TestMessageHistoryKeepsAppendOrder(t *testing.T) {
	svc, _, _ := setupService(t)
	user, room := signupAndRoom(t, svc)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, room.ID, user.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	history, err := svc.MessageHistory(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Body)
		assert.Equal(t, int64(i), msg.Sequence)
	}
}

func TestJoinRoom(t *testing.T) {
	svc, _, _ := setupService(t)
	_, room := signupAndRoom(t, svc)
	ctx := context.Background()

	bob, err := svc.Signup(ctx, domain.RegisterUser{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.JoinRoom(ctx, room.ID, bob.ID))

	member, err := svc.IsRoomMember(ctx, bob.ID, room.ID)
	require.NoError(t, err)
	assert.True(t, member)

	assert.Error(t, svc.JoinRoom(ctx, "missing-room", bob.ID))
	assert.Error(t, svc.JoinRoom(ctx, room.ID, "missing-user"))
}
