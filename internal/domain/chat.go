package domain

import "time"

// ChatMessage is the durable record form of a message. It is what gets
// appended to the chat-message stream and replayed by the relay consumer.
// Username is denormalized into the record so the relay never has to look
// the sender up while fanning out.
type ChatMessage struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	MessageID string    `json:"message_id"`
	Username  string    `json:"username,omitempty"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageKey is the stream record key. All messages of one room share the
// same room id, which keeps them in one ordered partition.
type MessageKey struct {
	ChatRoomID string `json:"chat_room_id"`
	UserID     string `json:"user_id"`
	MessageID  string `json:"message_id"`
}

func (m ChatMessage) Key() MessageKey {
	return MessageKey{
		ChatRoomID: m.RoomID,
		UserID:     m.UserID,
		MessageID:  m.MessageID,
	}
}

// Frame is the duplex wire form exchanged with connected clients. System
// notices ("Connected", "Disconnected") are frames with an empty username.
type Frame struct {
	Username     string    `json:"username,omitempty"`
	Message      string    `json:"message"`
	ChatRoomName string    `json:"chatRoomName"`
	TimeSent     time.Time `json:"timeSent"`
}

// Frame converts the record into its wire form.
func (m ChatMessage) Frame() Frame {
	return Frame{
		Username:     m.Username,
		Message:      m.Body,
		ChatRoomName: m.RoomID,
		TimeSent:     m.Timestamp,
	}
}

// SystemFrame builds a server-originated notice for a room.
func SystemFrame(roomID, text string) Frame {
	return Frame{
		Message:      text,
		ChatRoomName: roomID,
		TimeSent:     time.Now().UTC(),
	}
}
