package domain

// ChatRoom is a named channel. AdminID references the creating user.
type ChatRoom struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	AdminID     string `json:"adminId"`
}

// ChatRoomDetails is the room read model returned by lookups.
type ChatRoomDetails struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	Description      string `json:"description,omitempty"`
	AdminID          string `json:"adminId"`
	ParticipantCount int    `json:"participantCount"`
}

// StoredMessage is a message as persisted in the room history store.
type StoredMessage struct {
	ChatMessage
	Sequence int64 `json:"sequence"`
}
