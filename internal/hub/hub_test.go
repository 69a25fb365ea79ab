package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/pkg/logger"
)

// fakeTransport records every frame written to it.
type fakeTransport struct {
	mu     sync.Mutex
	frames []domain.Frame
	fail   bool
	panics bool
	closed bool
}

func (f *fakeTransport) WriteFrame(frame domain.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("transport gone")
	}
	if f.fail {
		return fmt.Errorf("write failed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) received() []domain.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func containsMessage(frames []domain.Frame, text string) bool {
	for _, f := range frames {
		if f.Message == text {
			return true
		}
	}
	return false
}

func newTestHub() *Hub {
	return NewHub(logger.NewLogger("error", ""))
}

func newTestSession(id, room string) (*Session, *fakeTransport) {
	t := &fakeTransport{}
	return &Session{ID: id, RoomID: room, Transport: t}, t
}

func TestRegisterBroadcastsConnectedNotice(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "lobby")
	h.Register(s1)

	frames := t1.received()
	require.Len(t, frames, 1, "new session should see its own Connected notice")
	assert.Equal(t, connectedNotice, frames[0].Message)
	assert.Equal(t, "lobby", frames[0].ChatRoomName)
	assert.Empty(t, frames[0].Username)

	s2, t2 := newTestSession("s2", "lobby")
	h.Register(s2)

	assert.Len(t, t1.received(), 2, "existing member should see the second Connected notice")
	assert.Len(t, t2.received(), 1)
}

func TestUnregisterBroadcastsDisconnectedNotice(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "lobby")
	s2, _ := newTestSession("s2", "lobby")
	h.Register(s1)
	h.Register(s2)

	before := len(t1.received())
	h.Unregister(s2)

	frames := t1.received()
	require.Len(t, frames, before+1)
	assert.Equal(t, disconnectedNotice, frames[len(frames)-1].Message)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "lobby")
	s2, _ := newTestSession("s2", "lobby")
	h.Register(s1)
	h.Register(s2)

	h.Unregister(s2)
	after := len(t1.received())
	h.Unregister(s2)

	assert.Equal(t, after, len(t1.received()), "second unregister must not emit another notice")
	assert.Equal(t, 1, h.SessionCount())
}

func TestRoomIsolation(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "R1")
	s2, t2 := newTestSession("s2", "R1")
	s3, t3 := newTestSession("s3", "R2")
	h.Register(s1)
	h.Register(s2)
	h.Register(s3)

	drain := len(t3.received())
	h.RouteToRoom("R1", domain.Frame{Username: "u1", Message: "hi", ChatRoomName: "R1"})

	last1 := t1.received()
	last2 := t2.received()
	require.NotEmpty(t, last1)
	require.NotEmpty(t, last2)
	assert.Equal(t, "hi", last1[len(last1)-1].Message)
	assert.Equal(t, "hi", last2[len(last2)-1].Message)
	assert.Equal(t, "R1", last2[len(last2)-1].ChatRoomName)

	assert.Len(t, t3.received(), drain, "session in R2 must not receive R1 traffic")
}

func TestPerRoomOrderPerSubscriber(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "R1")
	h.Register(s1)

	for i := 0; i < 50; i++ {
		h.RouteToRoom("R1", domain.Frame{Message: fmt.Sprintf("m%d", i), ChatRoomName: "R1"})
	}

	var got []string
	for _, f := range t1.received() {
		if f.Message != connectedNotice {
			got = append(got, f.Message)
		}
	}
	require.Len(t, got, 50)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), m)
	}
}

func TestDeliveryFailureIsIsolated(t *testing.T) {
	h := newTestHub()

	s1, t1 := newTestSession("s1", "R1")
	s2, t2 := newTestSession("s2", "R1")
	h.Register(s1)
	h.Register(s2)

	t1.mu.Lock()
	t1.fail = true
	t1.mu.Unlock()

	h.RouteToRoom("R1", domain.Frame{Message: "hi", ChatRoomName: "R1"})

	assert.True(t, containsMessage(t2.received(), "hi"), "healthy session still receives the message")

	// The failed session is implicitly disconnected.
	assert.Equal(t, 1, h.SessionCount())
	t1.mu.Lock()
	assert.True(t, t1.closed)
	t1.mu.Unlock()
}

func TestDeliveryPanicIsContained(t *testing.T) {
	h := newTestHub()

	s1, _ := newTestSession("s1", "R1")
	s2, t2 := newTestSession("s2", "R1")
	h.Register(s1)
	h.Register(s2)

	s1.Transport.(*fakeTransport).panics = true

	assert.NotPanics(t, func() {
		h.RouteToRoom("R1", domain.Frame{Message: "hi", ChatRoomName: "R1"})
	})

	assert.True(t, containsMessage(t2.received(), "hi"))
	assert.Equal(t, 1, h.SessionCount())
}

func TestEmptyRoomIsPruned(t *testing.T) {
	h := newTestHub()

	s1, _ := newTestSession("s1", "R1")
	h.Register(s1)
	assert.Equal(t, 1, h.RoomCount())

	h.Unregister(s1)
	assert.Equal(t, 0, h.RoomCount())
	assert.Equal(t, 0, h.SessionCount())
}

func TestRouteToUnknownRoomIsNoOp(t *testing.T) {
	h := newTestHub()
	assert.NotPanics(t, func() {
		h.RouteToRoom("nowhere", domain.Frame{Message: "hi"})
	})
}

func TestConcurrentRegisterUnregisterAndRoute(t *testing.T) {
	h := newTestHub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i%4)
			s, _ := newTestSession(fmt.Sprintf("s-%d", i), room)
			h.Register(s)
			h.RouteToRoom(room, domain.Frame{Message: "x", ChatRoomName: room})
			h.Unregister(s)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, h.SessionCount())
	assert.Equal(t, 0, h.RoomCount())
}
