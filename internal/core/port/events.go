package port

import (
	"context"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
)

// EventPublisher fans security events out to the event stream. Every publish
// is best-effort from the caller's point of view.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishLogout(ctx context.Context, event domain.LogoutEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishAccountUnlocked(ctx context.Context, event domain.AccountUnlockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
