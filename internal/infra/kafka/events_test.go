package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) (*EventPublisher, *Producer) {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "iam",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "iam-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, producer
}

func TestPublishUserRegistered(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher, _ := newTestPublisher(t, asyncProducer)

	registeredAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.UserRegisteredEvent{
		EventID:      "event-123",
		UserID:       "user-456",
		Username:     "alice",
		RegisteredAt: registeredAt,
		Roles:        []string{"user"},
		Metadata:     map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "iam.user.registered" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "iam.user.registered" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}

		if timestamp != registeredAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["username"]; got != event.Username {
			t.Fatalf("unexpected username: %v", got)
		}

		roles, ok := payload["roles"].([]any)
		if !ok || len(roles) != 1 || roles[0] != "user" {
			t.Fatalf("unexpected roles: %v", payload["roles"])
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", envelope["metadata"])
		}

		if got := metadata["service"]; got != "iam-service" {
			t.Fatalf("unexpected metadata.service: %v", got)
		}
	default:
		t.Fatal("expected message on producer input channel")
	}
}

func TestPublishPasswordChangedGeneratesEventID(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher, _ := newTestPublisher(t, asyncProducer)

	event := domain.PasswordChangedEvent{
		UserID:    "user-789",
		ChangedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		ChangedBy: "admin-1",
		Forced:    true,
	}

	if err := publisher.PublishPasswordChanged(context.Background(), event); err != nil {
		t.Fatalf("PublishPasswordChanged returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		eventID, ok := envelope["event_id"].(string)
		if !ok || eventID == "" {
			t.Fatalf("expected generated event_id, got %v", envelope["event_id"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		forced, ok := payload["forced"].(bool)
		if !ok || !forced {
			t.Fatalf("unexpected forced flag: %v", payload["forced"])
		}
	default:
		t.Fatal("expected message on producer input channel")
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	asyncProducer := &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage),
		errors: make(chan *sarama.ProducerError),
	}
	publisher, _ := newTestPublisher(t, asyncProducer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishUserDeleted(ctx, domain.UserDeletedEvent{
		UserID:    "user-1",
		Username:  "alice",
		DeletedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
