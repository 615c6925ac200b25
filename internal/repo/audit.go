package repo

import (
	"context"
)

// InsertAuditLogParams describe un evento de auditoría.
type InsertAuditLogParams struct {
	Action     string
	ActorID    *int64
	TargetType *string
	TargetID   *string
	Metadata   []byte
	IP         *string
	UserAgent  *string
}

// InsertAuditLog persiste el evento. El llamador decide qué hacer ante un
// error (la bitácora es best-effort).
func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	const query = `
        INSERT INTO audit_logs (action, actor_id, target_type, target_id, metadata, ip, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := q.pool.Exec(ctx, query,
		arg.Action, arg.ActorID, arg.TargetType, arg.TargetID, arg.Metadata, arg.IP, arg.UserAgent)
	return err
}

// ListAuditLogsFilter acota el listado de bitácora.
type ListAuditLogsFilter struct {
	Action  *string
	ActorID *int64
	Limit   int
	Offset  int
}

// ListAuditLogs devuelve eventos recientes primero.
func (q *Queries) ListAuditLogs(ctx context.Context, filter ListAuditLogsFilter) ([]AuditLog, error) {
	const query = `
        SELECT id, action, actor_id, target_type, target_id, metadata, ip, user_agent, creado_en
        FROM audit_logs
        WHERE ($1::text IS NULL OR action = $1)
          AND ($2::bigint IS NULL OR actor_id = $2)
        ORDER BY id DESC
        LIMIT $3 OFFSET $4
    `
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.pool.Query(ctx, query, filter.Action, filter.ActorID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var entry AuditLog
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ActorID, &entry.TargetType,
			&entry.TargetID, &entry.Metadata, &entry.IP, &entry.UserAgent, &entry.CreadoEn); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
