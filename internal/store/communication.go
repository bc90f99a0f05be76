package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/tartampluch/birthday-manager/internal/config"
)

// LogCommunication records one delivery attempt.
func (db *DB) LogCommunication(ctx context.Context, e *CommunicationEntry) error {
	now := db.timestamp()
	res, err := db.ExecContext(ctx, `
		INSERT INTO communication_log (group_name, channel, status, recipients, message, error_message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.GroupName, e.Channel, e.Status, e.Recipients, e.Message, e.Error, now,
	)
	if err != nil {
		return fmt.Errorf("log communication: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	e.SentAt = parseTimestamp(now)
	return nil
}

// ListCommunicationLog returns the newest entries first, optionally for one group.
// A non-positive limit falls back to the default.
func (db *DB) ListCommunicationLog(ctx context.Context, group string, limit int) ([]CommunicationEntry, error) {
	if limit <= 0 {
		limit = config.DefaultLogLimit
	}
	limit = min(limit, config.MaxLogLimit)

	var sb strings.Builder
	var args []any
	sb.WriteString(`SELECT id, group_name, channel, status, recipients, message, error_message, sent_at FROM communication_log`)
	if group != "" {
		sb.WriteString(` WHERE group_name = ?`)
		args = append(args, group)
	}
	sb.WriteString(` ORDER BY sent_at DESC, id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var out []CommunicationEntry
	for rows.Next() {
		var e CommunicationEntry
		var sentAt string
		if err := rows.Scan(&e.ID, &e.GroupName, &e.Channel, &e.Status, &e.Recipients, &e.Message, &e.Error, &sentAt); err != nil {
			return nil, fmt.Errorf("scan communication row: %w", err)
		}
		e.SentAt = parseTimestamp(sentAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkNotified claims the digest of group for day (YYYY-MM-DD).
// It reports false when the claim already exists.
func (db *DB) MarkNotified(ctx context.Context, day, group string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notification_runs (day, group_name) VALUES (?, ?)`, day, group)
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	return n == 1, nil
}
