package kafka

import (
	"context"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

// StubPublisher discards every event. Used when the event stream is
// disabled and in tests.
type StubPublisher struct{}

func (StubPublisher) PublishLoginSucceeded(context.Context, domain.LoginSucceededEvent) error {
	return nil
}

func (StubPublisher) PublishLoginFailed(context.Context, domain.LoginFailedEvent) error {
	return nil
}

func (StubPublisher) PublishLogout(context.Context, domain.LogoutEvent) error {
	return nil
}

func (StubPublisher) PublishAccountLocked(context.Context, domain.AccountLockedEvent) error {
	return nil
}

func (StubPublisher) PublishAccountUnlocked(context.Context, domain.AccountUnlockedEvent) error {
	return nil
}

func (StubPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}

var _ port.EventPublisher = StubPublisher{}
