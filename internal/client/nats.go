package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// NATSClient talks to an aigoflow inference worker over NATS
// request/reply: publish to inference.request.<model> with a unique
// reply subject and wait for the worker's response envelope.
type NATSClient struct {
	conn     *nats.Conn
	clientID string
	timeout  time.Duration
}

func NewNATSClient(natsURL, clientID string, timeout time.Duration) (*NATSClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	if clientID == "" {
		clientID = "estimate-time"
	}
	return &NATSClient{
		conn:     conn,
		clientID: clientID,
		timeout:  timeout,
	}, nil
}

func (c *NATSClient) Query(ctx context.Context, model, prompt string) (string, error) {
	topic := fmt.Sprintf("inference.request.%s", model)
	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("inference.response.%s.%s", c.clientID, reqID)

	request := natsRequest{
		ReqID: reqID,
		Input: prompt,
		Params: map[string]interface{}{
			"format": secondsFormat(),
		},
		Raw:     true,
		ReplyTo: replySubject,
	}

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshaling inference request: %w", err)
	}

	// Subscribe to the reply subject before publishing so the worker's
	// response cannot race the subscription.
	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return "", fmt.Errorf("subscribing to reply subject: %w", err)
	}
	defer sub.Unsubscribe()

	if err := c.conn.Publish(topic, requestBytes); err != nil {
		return "", fmt.Errorf("publishing inference request: %w", err)
	}

	slog.Debug("Published inference request", "topic", topic, "req_id", reqID)

	select {
	case msg := <-replyChan:
		var response natsResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			return "", fmt.Errorf("parsing inference response: %w", err)
		}
		if response.Error != "" {
			return "", fmt.Errorf("inference worker error: %s", response.Error)
		}
		return strings.TrimSpace(response.Text), nil

	case <-time.After(c.timeout):
		return "", fmt.Errorf("inference request timeout after %v", c.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *NATSClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
