package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
	logger   *zap.Logger
}

// NewEventPublisher constructs a Kafka-backed security event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Email     string    `json:"email"`
		SessionID string    `json:"session_id"`
		IP        *string   `json:"ip,omitempty"`
		UserAgent *string   `json:"user_agent,omitempty"`
		LoggedAt  time.Time `json:"logged_at"`
	}{event.AccountID, event.Email, event.SessionID, event.IP, event.UserAgent, event.LoggedAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.AccountID, event.LoggedAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	payload := struct {
		AccountID *string   `json:"account_id,omitempty"`
		Email     string    `json:"email"`
		Reason    string    `json:"reason"`
		IP        *string   `json:"ip,omitempty"`
		FailedAt  time.Time `json:"failed_at"`
	}{event.AccountID, event.Email, string(event.Reason), event.IP, event.FailedAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.login.failed", accountID, event.FailedAt, payload)
}

// PublishLogout publishes auth.logout events.
func (p *EventPublisher) PublishLogout(ctx context.Context, event domain.LogoutEvent) error {
	payload := struct {
		AccountID    string    `json:"account_id"`
		SessionsGone int       `json:"sessions_gone"`
		TokenVersion int64     `json:"token_version"`
		LoggedOutAt  time.Time `json:"logged_out_at"`
	}{event.AccountID, event.SessionsGone, event.TokenVersion, event.LoggedOutAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.logout", event.AccountID, event.LoggedOutAt, payload)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Email     string    `json:"email"`
		Failures  int       `json:"failures"`
		LockedAt  time.Time `json:"locked_at"`
	}{event.AccountID, event.Email, event.Failures, event.LockedAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.account.locked", event.AccountID, event.LockedAt, payload)
}

// PublishAccountUnlocked publishes auth.account.unlocked events.
func (p *EventPublisher) PublishAccountUnlocked(ctx context.Context, event domain.AccountUnlockedEvent) error {
	payload := struct {
		AccountID  string    `json:"account_id"`
		Method     string    `json:"method"`
		UnlockedAt time.Time `json:"unlocked_at"`
	}{event.AccountID, event.Method, event.UnlockedAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.account.unlocked", event.AccountID, event.UnlockedAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Forced    bool      `json:"forced"`
		ChangedAt time.Time `json:"changed_at"`
	}{event.AccountID, event.Forced, event.ChangedAt.UTC()}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.AccountID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
