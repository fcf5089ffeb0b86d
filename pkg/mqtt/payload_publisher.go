package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/telemetry-bridge/internal/models"
)

const publishTimeout = 2 * time.Second

// PayloadPublisher mirrors the latest wire payload to a retained MQTT topic.
// Identical consecutive payloads are published once.
type PayloadPublisher struct {
	client MQTTClient
	topic  string
	qos    byte
	last   []byte
}

// NewPayloadPublisher creates a publisher on topic.
func NewPayloadPublisher(client MQTTClient, topic string, qos int) *PayloadPublisher {
	return &PayloadPublisher{client: client, topic: topic, qos: byte(qos)}
}

// MirrorPayload publishes payload unless it matches the previous one.
func (p *PayloadPublisher) MirrorPayload(ctx context.Context, payload models.WirePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}
	if bytes.Equal(data, p.last) {
		return nil
	}

	// never wait less than publishTimeout, even on a spent context
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(deadline), publishTimeout)
	}

	token := p.client.Publish(p.topic, p.qos, true, data)
	if !token.WaitTimeout(timeout) {
		return errors.New("timed out publishing payload")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish payload: %w", err)
	}

	p.last = data
	return nil
}
