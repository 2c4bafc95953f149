package mural

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Store is the persistence surface the acknowledgment tracker depends on.
// UpsertLog must be atomic per (user, notice) key; the Postgres repository
// satisfies that with ON CONFLICT on the composite primary key.
type Store interface {
	ListNotices(ctx context.Context) ([]Notice, error)
	GetNotice(ctx context.Context, id uuid.UUID) (Notice, error)
	CreateNotice(ctx context.Context, n Notice) (uuid.UUID, error)
	DeleteNotice(ctx context.Context, id uuid.UUID) error
	UpsertLog(ctx context.Context, log ReadLog) error
	FindLog(ctx context.Context, userID, noticeID uuid.UUID) (*ReadLog, error)
	ListLogsByUser(ctx context.Context, userID uuid.UUID) ([]ReadLog, error)
	ListLogsByNotice(ctx context.Context, noticeID uuid.UUID) ([]NoticeReader, error)
}

// Service implements the bulletin board and its read-receipt tracking.
type Service struct {
	Store  Store
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListForUser returns all notices annotated with the caller's read state.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]NoticeWithState, error) {
	notices, err := s.Store.ListNotices(ctx)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	logs, err := s.Store.ListLogsByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	confirmed := make(map[uuid.UUID]time.Time, len(logs))
	for _, log := range logs {
		confirmed[log.NoticeID] = log.ConfirmedAt
	}
	result := make([]NoticeWithState, 0, len(notices))
	for _, n := range notices {
		state := NoticeWithState{Notice: n}
		if at, ok := confirmed[n.ID]; ok {
			state.Read = true
			ts := at
			state.ConfirmedAt = &ts
		}
		result = append(result, state)
	}
	return result, nil
}

// Confirm records a read receipt for the caller. Confirming twice refreshes
// the timestamp; it never duplicates the row and never errors.
func (s *Service) Confirm(ctx context.Context, caps *capability.Capabilities, noticeID uuid.UUID) error {
	if caps == nil {
		return common.ErrUnauthenticated()
	}
	if noticeID == uuid.Nil {
		return common.ErrValidation("noticeId is required", nil)
	}
	if _, err := s.Store.GetNotice(ctx, noticeID); err != nil {
		if err == ErrNoticeNotFound {
			return common.ErrValidation("notice does not exist", nil)
		}
		return common.ErrStorage(err)
	}
	log := ReadLog{
		UserID:      caps.UserID,
		NoticeID:    noticeID,
		AgencyID:    caps.AgencyID,
		AgencyName:  caps.AgencyName,
		ConfirmedAt: s.now(),
	}
	if err := s.Store.UpsertLog(ctx, log); err != nil {
		return common.ErrStorage(err)
	}
	return nil
}

// ReadersOf lists confirmations for a notice. Non-admin callers only see rows
// belonging to their own agency, matched by id or by name because older rows
// denormalized only one of the two. Storage failures intentionally degrade to
// an empty list: the reader panel is not worth failing a page for.
func (s *Service) ReadersOf(ctx context.Context, noticeID uuid.UUID, scopeAgencyID *uuid.UUID, scopeAgencyName string, isAdmin bool) []Reader {
	rows, err := s.Store.ListLogsByNotice(ctx, noticeID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("notice_id", noticeID.String()).Msg("reader list unavailable")
		return []Reader{}
	}
	readers := make([]Reader, 0, len(rows))
	for _, row := range rows {
		if !isAdmin && !agencyMatches(row, scopeAgencyID, scopeAgencyName) {
			continue
		}
		readers = append(readers, Reader{
			UserName:    row.UserName,
			AgencyName:  row.AgencyName,
			ConfirmedAt: row.ConfirmedAt,
		})
	}
	return readers
}

// ReadLogsFor returns the caller's own confirmations.
func (s *Service) ReadLogsFor(ctx context.Context, userID uuid.UUID) ([]ReadLog, error) {
	logs, err := s.Store.ListLogsByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	return logs, nil
}

// Publish creates a notice (admin only, enforced at the router).
func (s *Service) Publish(ctx context.Context, title, body string, pinned bool) (uuid.UUID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return uuid.Nil, common.ErrValidation("title is required", nil)
	}
	id, err := s.Store.CreateNotice(ctx, Notice{Title: title, Body: body, Pinned: pinned})
	if err != nil {
		return uuid.Nil, common.ErrStorage(err)
	}
	return id, nil
}

// Remove deletes a notice together with its read logs.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.DeleteNotice(ctx, id); err != nil {
		if err == ErrNoticeNotFound {
			return common.ErrValidation("notice does not exist", nil)
		}
		return common.ErrStorage(err)
	}
	return nil
}

func agencyMatches(row NoticeReader, scopeAgencyID *uuid.UUID, scopeAgencyName string) bool {
	if scopeAgencyID != nil && row.AgencyID != nil && *row.AgencyID == *scopeAgencyID {
		return true
	}
	if scopeAgencyName != "" && strings.EqualFold(strings.TrimSpace(row.AgencyName), strings.TrimSpace(scopeAgencyName)) {
		return true
	}
	return false
}
