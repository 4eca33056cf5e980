package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/pipeline"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MessageHandler processes one message body. A nil return completes the
// message; a pipeline.ErrStorageUnavailable return abandons it so the broker
// redelivers (safe because the bulk insert is idempotent on identity keys).
type MessageHandler func(ctx context.Context, body []byte) error

// ServiceBus wraps one Azure Service Bus queue for the ingestion intake
type ServiceBus struct {
	client    *azservicebus.Client
	queueName string
}

// NewServiceBus creates a Service Bus client for the configured queue
func NewServiceBus(cfg config.AzureConfig) (*ServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	return &ServiceBus{
		client:    client,
		queueName: cfg.QueueName,
	}, nil
}

// SendBatch publishes an ingestion batch to the queue. Used by tooling and
// tests to feed the worker.
func (s *ServiceBus) SendBatch(ctx context.Context, source string, readings []pipeline.Reading) error {
	sender, err := s.client.NewSender(s.queueName, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create sender for queue %s", s.queueName)
	}
	defer sender.Close(ctx)

	body, err := json.Marshal(map[string]interface{}{
		"source":   source,
		"readings": readings,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal batch")
	}

	msg := &azservicebus.Message{
		Body: body,
		ApplicationProperties: map[string]interface{}{
			"source": source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return sender.SendMessage(ctx, msg, nil)
}

// ProcessMessages receives from the queue in PeekLock mode and dispatches to
// the handler until the context is cancelled. Handler failures abandon the
// message for redelivery; everything else is completed.
func (s *ServiceBus) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	receiver, err := s.client.NewReceiverForQueue(s.queueName, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create receiver for queue %s", s.queueName)
	}
	defer receiver.Close(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Failed to receive messages, backing off")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, msg := range messages {
			s.dispatch(ctx, receiver, msg, handler)
		}
	}
}

func (s *ServiceBus) dispatch(ctx context.Context, receiver *azservicebus.Receiver, msg *azservicebus.ReceivedMessage, handler MessageHandler) {
	if err := handler(ctx, msg.Body); err != nil {
		log.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Handler failed, abandoning message")
		if abandonErr := receiver.AbandonMessage(ctx, msg, nil); abandonErr != nil {
			log.Error().Err(abandonErr).Str("message_id", msg.MessageID).Msg("Failed to abandon message")
		}
		return
	}

	if err := receiver.CompleteMessage(ctx, msg, nil); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to complete message")
	}
}

// Close closes the Service Bus client
func (s *ServiceBus) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(context.Background())
}
