package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/pkg/logger"
)

// Router receives decoded messages from the relay consumer.
type Router interface {
	RouteToRoom(roomID string, frame domain.Frame)
}

// RelayConsumer tails the chat message stream with a durable consumer and
// forwards every record to the session hub. It runs independently of the
// HTTP request path and is the only delivery trigger for chat messages.
type RelayConsumer struct {
	client  *Client
	router  Router
	durable string
	sub     *nats.Subscription
	log     logger.Logger
}

func NewRelayConsumer(ctx context.Context, client *Client, router Router, durable string) *RelayConsumer {
	return &RelayConsumer{
		client:  client,
		router:  router,
		durable: durable,
		log:     logger.FromContext(ctx).WithModule("relay"),
	}
}

// Start subscribes the durable consumer. Records are acked only after the
// hub hand-off, so a crash in between redelivers the record on restart
// (at-least-once).
func (rc *RelayConsumer) Start() error {
	sub, err := rc.client.js.Subscribe(
		chatMessageSubject+".*",
		rc.handle,
		nats.Durable(rc.durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverNew(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe relay consumer: %w", err)
	}

	rc.sub = sub
	rc.log.Infof("relay consumer started (durable %s)", rc.durable)
	return nil
}

func (rc *RelayConsumer) handle(m *nats.Msg) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		rc.log.Errorf("skipping malformed record on %s: %v", m.Subject, err)
		m.Term()
		return
	}
	if msg.RoomID == "" || msg.MessageID == "" {
		rc.log.Errorf("skipping record on %s with missing key fields", m.Subject)
		m.Term()
		return
	}

	rc.router.RouteToRoom(msg.RoomID, msg.Frame())

	if err := m.Ack(); err != nil {
		rc.log.Warnf("failed to ack message %s: %v", msg.MessageID, err)
	}
}

// Stop drains the subscription, letting in-flight handlers finish.
func (rc *RelayConsumer) Stop() {
	if rc.sub == nil {
		return
	}
	if err := rc.sub.Drain(); err != nil {
		rc.log.Warnf("failed to drain relay consumer: %v", err)
	}
}
