package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/logger"
)

// LogMailer writes outgoing mail to the structured log instead of a
// delivery channel. It stands in wherever no real provider is configured.
// With includeBody set the message body lands in the log too, which is how
// development and staging operators read their verification codes; in
// production only the masked destination and subject are recorded.
type LogMailer struct {
	log         *zap.Logger
	includeBody bool
}

// NewLogMailer constructs a LogMailer instance.
func NewLogMailer(log *zap.Logger, includeBody bool) *LogMailer {
	return &LogMailer{log: log, includeBody: includeBody}
}

// Send records the message. It never fails.
func (m *LogMailer) Send(_ context.Context, message port.MailMessage) error {
	fields := []zap.Field{
		zap.String("to", logger.MaskEmail(message.To)),
		zap.String("subject", message.Subject),
	}
	if m.includeBody {
		fields = append(fields, zap.String("body", message.Body))
	}

	m.log.Info("mail dispatched", fields...)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
