package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
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

func TestPublishAccountLocked(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer:    asyncProducer,
		topicPrefix: "gladpros",
		logger:      zaptest.NewLogger(t),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "gladpros-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))

	lockedAt := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	event := domain.AccountLockedEvent{
		EventID:   "event-123",
		AccountID: "account-456",
		Email:     "ana@gladpros.com",
		Failures:  6,
		LockedAt:  lockedAt,
	}

	if err := publisher.PublishAccountLocked(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountLocked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "gladpros-auth-account-locked" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		key, err := msg.Key.Encode()
		if err != nil {
			t.Fatalf("Key.Encode returned error: %v", err)
		}
		if string(key) != event.AccountID {
			t.Fatalf("unexpected partition key: %s", key)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.account.locked" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != lockedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["email"]; got != event.Email {
			t.Fatalf("unexpected email: %v", got)
		}
		if got := payload["failures"]; got != float64(event.Failures) {
			t.Fatalf("unexpected failures: %v", got)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", envelope["metadata"])
		}
		if got := metadata["service"]; got != "gladpros-auth" {
			t.Fatalf("unexpected service: %v", got)
		}
	default:
		t.Fatal("no message was produced")
	}
}

func TestPublishLoginFailedWithoutAccount(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer:    asyncProducer,
		topicPrefix: "",
		logger:      zaptest.NewLogger(t),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "gladpros-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))

	failedAt := time.Date(2025, 3, 10, 9, 31, 0, 0, time.UTC)
	event := domain.LoginFailedEvent{
		EventID:  "event-789",
		Email:    "ghost@gladpros.com",
		Reason:   domain.FailureNoSuchAccount,
		FailedAt: failedAt,
	}

	if err := publisher.PublishLoginFailed(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginFailed returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth-login-failed" {
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

		if _, present := envelope["account_id"]; present {
			t.Fatalf("expected account_id to be omitted, got %v", envelope["account_id"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["reason"]; got != string(domain.FailureNoSuchAccount) {
			t.Fatalf("unexpected reason: %v", got)
		}
	default:
		t.Fatal("no message was produced")
	}
}
