package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/stedixon/KafkaChat/internal/domain"
)

// keyHeader carries the record key alongside the payload.
const keyHeader = "Chat-Key"

// PublishMessage appends the message to the chat stream asynchronously.
// The outcome is observed by a completion handler that logs delivery or
// failure; the caller is never blocked on the broker. The message id is
// used as the stream's deduplication id, so a retried submit of the same
// message is never appended twice.
func (c *Client) PublishMessage(msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	key, err := json.Marshal(msg.Key())
	if err != nil {
		return fmt.Errorf("failed to serialize message key: %w", err)
	}

	m := nats.NewMsg(RoomSubject(msg.RoomID))
	m.Data = data
	m.Header.Set(nats.MsgIdHdr, msg.MessageID)
	m.Header.Set(keyHeader, string(key))

	future, err := c.js.PublishMsgAsync(m)
	if err != nil {
		return fmt.Errorf("failed to submit message %s: %w", msg.MessageID, err)
	}

	go func() {
		select {
		case ack := <-future.Ok():
			c.log.Infof("sent message %s to room %s (seq %d)", msg.MessageID, msg.RoomID, ack.Sequence)
		case err := <-future.Err():
			c.log.Errorf("failed to send message %s to room %s: %v", msg.MessageID, msg.RoomID, err)
		}
	}()

	return nil
}
