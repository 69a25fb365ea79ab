package hub

import "github.com/stedixon/KafkaChat/internal/domain"

// Transport is the write side of one live connection. Implementations must
// be safe for use by the hub's fan-out goroutines.
type Transport interface {
	WriteFrame(domain.Frame) error
	Close() error
}

// Session is one live duplex connection bound to exactly one room. It is
// created by the connection endpoint and owned by it; the hub only tracks
// and writes to it.
type Session struct {
	ID        string
	RoomID    string
	Transport Transport
}
