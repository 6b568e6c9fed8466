package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessLog is one authenticated API request.
type AccessLog struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor"`
	Role      string    `json:"role"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessLogPage is one page of access logs, newest first.
type AccessLogPage struct {
	Logs       []AccessLog `json:"logs"`
	TotalCount int         `json:"total_count"`
}

const insertAccessLogSQL = `
    INSERT INTO wardmon.access_logs (id, actor, role, method, path, status, ip, user_agent, latency_ms, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// InsertAccessLog stores entry, filling in the id and timestamp when unset.
func (s *Store) InsertAccessLog(ctx context.Context, entry AccessLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, insertAccessLogSQL,
		entry.ID, entry.Actor, entry.Role, entry.Method, entry.Path, entry.Status,
		entry.IP, entry.UserAgent, entry.LatencyMS, entry.CreatedAt)
	return err
}

const listAccessLogsSQL = `
    SELECT id, actor, role, method, path, status, ip, user_agent, latency_ms, created_at
    FROM wardmon.access_logs
    ORDER BY created_at DESC
    LIMIT $1 OFFSET $2
`

// ListAccessLogs returns a page of access logs.
func (s *Store) ListAccessLogs(ctx context.Context, limit, offset int) (*AccessLogPage, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM wardmon.access_logs").Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, listAccessLogsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]AccessLog, 0, limit)
	for rows.Next() {
		var l AccessLog
		if err := rows.Scan(
			&l.ID,
			&l.Actor,
			&l.Role,
			&l.Method,
			&l.Path,
			&l.Status,
			&l.IP,
			&l.UserAgent,
			&l.LatencyMS,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &AccessLogPage{Logs: logs, TotalCount: total}, nil
}
