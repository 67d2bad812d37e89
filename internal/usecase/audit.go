package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

// AuditService appends to the audit trail. Writes are fire-and-forget: a
// failed append is logged and swallowed so the triggering operation is never
// aborted by its own audit record.
type AuditService struct {
	audits port.AuditRepository
	log    *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(audits port.AuditRepository, log *zap.Logger) *AuditService {
	return &AuditService{
		audits: audits,
		log:    log,
		now:    time.Now,
	}
}

// Record appends an entry, filling in ID and timestamp.
func (s *AuditService) Record(ctx context.Context, tableName, recordID string, action domain.AuditAction, actorAccountID, ip *string, payload map[string]any) {
	entry := domain.AuditEntry{
		ID:             uuid.NewString(),
		TableName:      tableName,
		RecordID:       recordID,
		Action:         action,
		ActorAccountID: actorAccountID,
		IP:             ip,
		Payload:        payload,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.audits.Append(ctx, entry); err != nil {
		s.log.Warn("append audit entry",
			zap.String("table", tableName),
			zap.String("record_id", recordID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// History lists entries for one record, newest first.
func (s *AuditService) History(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	entries, err := s.audits.History(ctx, tableName, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("load audit history: %w", err)
	}

	return entries, nil
}
