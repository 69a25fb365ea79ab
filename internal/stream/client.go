package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stedixon/KafkaChat/pkg/logger"
)

// chatMessageSubject is the subject prefix of the chat message stream. One
// subject per room keeps each room's messages in a single ordered partition.
const chatMessageSubject = "chat.message"

// RoomSubject returns the stream subject carrying one room's messages.
func RoomSubject(roomID string) string {
	return fmt.Sprintf("%s.%s", chatMessageSubject, roomID)
}

// Client wraps the NATS connection and the JetStream context holding the
// durable chat message log.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  logger.Logger
}

// NewClient connects to NATS and makes sure the chat message stream exists.
func NewClient(ctx context.Context, url, streamName string) (*Client, error) {
	log := logger.FromContext(ctx).WithModule("stream")

	nc, err := nats.Connect(url, nats.Name("kafkachat"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c := &Client{conn: nc, js: js, log: log}
	if err := c.ensureStream(streamName); err != nil {
		nc.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) ensureStream(name string) error {
	_, err := c.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   []string{chatMessageSubject + ".*"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	c.log.Infof("created stream %s", name)
	return nil
}

// Close drains the connection, letting in-flight publishes settle.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
