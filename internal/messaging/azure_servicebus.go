package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/cloudpanel/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// Client defines the interface for message bus operations. The job callback
// queue is drained by the worker; the email queue receives notification jobs
// for the out-of-scope email delivery service.
type Client interface {
	PublishMessage(ctx context.Context, queueName string, body interface{}) error
	ReceiveMessages(ctx context.Context, queueName string, count int) ([]Message, error)
	Close() error
}

// Message represents a message received from the bus
type Message interface {
	Body() []byte
	Complete(ctx context.Context) error
	Abandon(ctx context.Context) error
}

// serviceBusClient implements Client using Azure Service Bus
type serviceBusClient struct {
	client    *azservicebus.Client
	senders   map[string]*azservicebus.Sender
	receivers map[string]*azservicebus.Receiver
	source    string
}

// serviceBusMessage implements Message
type serviceBusMessage struct {
	message  *azservicebus.ReceivedMessage
	receiver *azservicebus.Receiver
}

// mockClient is a mock implementation for local development
type mockClient struct {
	source string
}

// NewClient creates a new message bus client. Without a connection string a
// mock client is returned for local development.
func NewClient(cfg config.ServiceBusConfig, source string) (Client, error) {
	if cfg.ConnectionString == "" {
		return &mockClient{source: source}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	return &serviceBusClient{
		client:    client,
		senders:   make(map[string]*azservicebus.Sender),
		receivers: make(map[string]*azservicebus.Receiver),
		source:    source,
	}, nil
}

// sender returns a cached sender for the queue, creating it on first use
func (c *serviceBusClient) sender(queueName string) (*azservicebus.Sender, error) {
	if s, ok := c.senders[queueName]; ok {
		return s, nil
	}
	s, err := c.client.NewSender(queueName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender for queue %s: %w", queueName, err)
	}
	c.senders[queueName] = s
	return s, nil
}

// PublishMessage publishes a message to a queue
func (c *serviceBusClient) PublishMessage(ctx context.Context, queueName string, body interface{}) error {
	sender, err := c.sender(queueName)
	if err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": c.source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return sender.SendMessage(ctx, msg, nil)
}

// ReceiveMessages receives up to count messages from a queue
func (c *serviceBusClient) ReceiveMessages(ctx context.Context, queueName string, count int) ([]Message, error) {
	receiver, ok := c.receivers[queueName]
	if !ok {
		var err error
		receiver, err = c.client.NewReceiverForQueue(queueName, &azservicebus.ReceiverOptions{
			ReceiveMode: azservicebus.ReceiveModePeekLock,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create receiver for queue %s: %w", queueName, err)
		}
		c.receivers[queueName] = receiver
	}

	received, err := receiver.ReceiveMessages(ctx, count, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages from queue %s: %w", queueName, err)
	}

	messages := make([]Message, 0, len(received))
	for _, m := range received {
		messages = append(messages, &serviceBusMessage{message: m, receiver: receiver})
	}
	return messages, nil
}

// Close closes all senders, receivers and the underlying client
func (c *serviceBusClient) Close() error {
	ctx := context.Background()
	for _, s := range c.senders {
		if err := s.Close(ctx); err != nil {
			return err
		}
	}
	for _, r := range c.receivers {
		if err := r.Close(ctx); err != nil {
			return err
		}
	}
	return c.client.Close(ctx)
}

// Body returns the raw message body
func (m *serviceBusMessage) Body() []byte {
	return m.message.Body
}

// Complete settles the message as successfully processed
func (m *serviceBusMessage) Complete(ctx context.Context) error {
	return m.receiver.CompleteMessage(ctx, m.message, nil)
}

// Abandon releases the message back to the queue for redelivery
func (m *serviceBusMessage) Abandon(ctx context.Context) error {
	return m.receiver.AbandonMessage(ctx, m.message, nil)
}

// PublishMessage implementation for mock client
func (m *mockClient) PublishMessage(ctx context.Context, queueName string, body interface{}) error {
	fmt.Printf("[MOCK ServiceBus] Message sent from %s to %s: %+v\n", m.source, queueName, body)
	return nil
}

// ReceiveMessages implementation for mock client
func (m *mockClient) ReceiveMessages(ctx context.Context, queueName string, count int) ([]Message, error) {
	// Nothing to receive locally; back off so the worker loop does not spin
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return nil, nil
	}
}

// Close implementation for mock client
func (m *mockClient) Close() error {
	return nil
}
