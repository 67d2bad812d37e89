package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

// AuditRepository implements port.AuditRepository using PostgreSQL. Rows are
// append-only and never mutated after insert.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{exec: exec, builder: newBuilder()}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	var payload []byte
	if entry.Payload != nil {
		encoded, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("encode audit payload: %w", err)
		}
		payload = encoded
	}

	stmt, args, err := r.builder.Insert("audit_log").
		Columns("id", "table_name", "record_id", "action", "actor_account_id", "ip", "payload", "created_at").
		Values(entry.ID, entry.TableName, entry.RecordID, entry.Action, entry.ActorAccountID, entry.IP, payload, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// History lists entries for one record newest first, resolving the actor's
// email when the actor account still exists.
func (r *AuditRepository) History(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error) {
	stmt, args, err := r.builder.
		Select("a.id", "a.table_name", "a.record_id", "a.action", "a.actor_account_id", "acc.email", "a.ip", "a.payload", "a.created_at").
		From("audit_log a").
		LeftJoin("accounts acc ON acc.id = a.actor_account_id").
		Where(squirrel.Eq{"a.table_name": tableName, "a.record_id": recordID}).
		OrderBy("a.created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var payload []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TableName,
			&entry.RecordID,
			&entry.Action,
			&entry.ActorAccountID,
			&entry.ActorEmail,
			&entry.IP,
			&payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entry rows: %w", err)
	}

	return entries, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
