package mural

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoticeNotFound signals the requested notice does not exist.
var ErrNoticeNotFound = errors.New("mural: notice not found")

// Repository provides pgxpool-backed access to notices and read logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListNotices returns notices, pinned first, newest first within each group.
func (r *Repository) ListNotices(ctx context.Context) ([]Notice, error) {
	const query = `
		SELECT id, title, body, pinned, created_at
		FROM notices
		ORDER BY pinned DESC, created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mural: list notices: %w", err)
	}
	defer rows.Close()

	notices := make([]Notice, 0, 16)
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Pinned, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("mural: scan notice: %w", err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mural: iterate notices: %w", err)
	}
	return notices, nil
}

// GetNotice fetches a notice by id.
func (r *Repository) GetNotice(ctx context.Context, id uuid.UUID) (Notice, error) {
	const query = `SELECT id, title, body, pinned, created_at FROM notices WHERE id = $1`
	var n Notice
	err := r.pool.QueryRow(ctx, query, id).Scan(&n.ID, &n.Title, &n.Body, &n.Pinned, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notice{}, ErrNoticeNotFound
		}
		return Notice{}, fmt.Errorf("mural: get notice: %w", err)
	}
	return n, nil
}

// CreateNotice publishes a new notice.
func (r *Repository) CreateNotice(ctx context.Context, n Notice) (uuid.UUID, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	const query = `INSERT INTO notices (id, title, body, pinned, created_at) VALUES ($1,$2,$3,$4,now())`
	if _, err := r.pool.Exec(ctx, query, n.ID, n.Title, n.Body, n.Pinned); err != nil {
		return uuid.Nil, fmt.Errorf("mural: insert notice: %w", err)
	}
	return n.ID, nil
}

// DeleteNotice removes a notice and its read logs.
func (r *Repository) DeleteNotice(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mural: delete notice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoticeNotFound
	}
	return nil
}

// UpsertLog records a confirmation for the (user, notice) pair. The composite
// primary key plus ON CONFLICT makes the write atomic: concurrent duplicate
// confirmations collapse into a timestamp refresh, never a second row.
func (r *Repository) UpsertLog(ctx context.Context, log ReadLog) error {
	const query = `
		INSERT INTO notice_reads (user_id, notice_id, agency_id, agency_name, confirmed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, notice_id)
		DO UPDATE SET confirmed_at = EXCLUDED.confirmed_at,
			agency_id = EXCLUDED.agency_id,
			agency_name = EXCLUDED.agency_name
	`
	if _, err := r.pool.Exec(ctx, query, log.UserID, log.NoticeID, log.AgencyID, log.AgencyName, log.ConfirmedAt); err != nil {
		return fmt.Errorf("mural: upsert read log: %w", err)
	}
	return nil
}

// FindLog fetches the confirmation for a (user, notice) pair, nil when absent.
func (r *Repository) FindLog(ctx context.Context, userID, noticeID uuid.UUID) (*ReadLog, error) {
	const query = `
		SELECT user_id, notice_id, agency_id, agency_name, confirmed_at
		FROM notice_reads
		WHERE user_id = $1 AND notice_id = $2
	`
	var log ReadLog
	err := r.pool.QueryRow(ctx, query, userID, noticeID).Scan(
		&log.UserID, &log.NoticeID, &log.AgencyID, &log.AgencyName, &log.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("mural: find read log: %w", err)
	}
	return &log, nil
}

// ListLogsByUser returns the user's confirmations, newest first.
func (r *Repository) ListLogsByUser(ctx context.Context, userID uuid.UUID) ([]ReadLog, error) {
	const query = `
		SELECT user_id, notice_id, agency_id, agency_name, confirmed_at
		FROM notice_reads
		WHERE user_id = $1
		ORDER BY confirmed_at DESC
	`
	return r.queryLogs(ctx, query, userID)
}

// ListLogsByNotice returns every confirmation for a notice joined with the
// reader's display name, newest confirmation first.
func (r *Repository) ListLogsByNotice(ctx context.Context, noticeID uuid.UUID) ([]NoticeReader, error) {
	const query = `
		SELECT nr.user_id, u.name, nr.agency_id, nr.agency_name, nr.confirmed_at
		FROM notice_reads nr
		JOIN users u ON u.id = nr.user_id
		WHERE nr.notice_id = $1
		ORDER BY nr.confirmed_at DESC
	`
	rows, err := r.pool.Query(ctx, query, noticeID)
	if err != nil {
		return nil, fmt.Errorf("mural: list readers: %w", err)
	}
	defer rows.Close()

	readers := make([]NoticeReader, 0, 16)
	for rows.Next() {
		var reader NoticeReader
		if err := rows.Scan(&reader.UserID, &reader.UserName, &reader.AgencyID, &reader.AgencyName, &reader.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("mural: scan reader: %w", err)
		}
		readers = append(readers, reader)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mural: iterate readers: %w", err)
	}
	return readers, nil
}

func (r *Repository) queryLogs(ctx context.Context, query string, args ...any) ([]ReadLog, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mural: list read logs: %w", err)
	}
	defer rows.Close()

	logs := make([]ReadLog, 0, 16)
	for rows.Next() {
		var log ReadLog
		if err := rows.Scan(&log.UserID, &log.NoticeID, &log.AgencyID, &log.AgencyName, &log.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("mural: scan read log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mural: iterate read logs: %w", err)
	}
	return logs, nil
}

// NoticeReader is a read-log row joined with reader identity.
type NoticeReader struct {
	UserID      uuid.UUID
	UserName    string
	AgencyID    *uuid.UUID
	AgencyName  string
	ConfirmedAt time.Time
}
