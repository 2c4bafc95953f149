package mural

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/capability"
)

// stubStore keys read logs by (user, notice) the way the composite primary
// key does, so repeated upserts collapse into one row.
type stubStore struct {
	notices     map[uuid.UUID]Notice
	logs        map[[2]uuid.UUID]ReadLog
	readers     []NoticeReader
	readersErr  error
	upsertCalls int
}

func newStubStore() *stubStore {
	return &stubStore{
		notices: make(map[uuid.UUID]Notice),
		logs:    make(map[[2]uuid.UUID]ReadLog),
	}
}

func (s *stubStore) ListNotices(context.Context) ([]Notice, error) {
	out := make([]Notice, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n)
	}
	return out, nil
}

func (s *stubStore) GetNotice(_ context.Context, id uuid.UUID) (Notice, error) {
	n, ok := s.notices[id]
	if !ok {
		return Notice{}, ErrNoticeNotFound
	}
	return n, nil
}

func (s *stubStore) CreateNotice(_ context.Context, n Notice) (uuid.UUID, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.notices[n.ID] = n
	return n.ID, nil
}

func (s *stubStore) DeleteNotice(_ context.Context, id uuid.UUID) error {
	if _, ok := s.notices[id]; !ok {
		return ErrNoticeNotFound
	}
	delete(s.notices, id)
	return nil
}

func (s *stubStore) UpsertLog(_ context.Context, log ReadLog) error {
	s.upsertCalls++
	s.logs[[2]uuid.UUID{log.UserID, log.NoticeID}] = log
	return nil
}

func (s *stubStore) FindLog(_ context.Context, userID, noticeID uuid.UUID) (*ReadLog, error) {
	log, ok := s.logs[[2]uuid.UUID{userID, noticeID}]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (s *stubStore) ListLogsByUser(_ context.Context, userID uuid.UUID) ([]ReadLog, error) {
	out := make([]ReadLog, 0, len(s.logs))
	for _, log := range s.logs {
		if log.UserID == userID {
			out = append(out, log)
		}
	}
	return out, nil
}

func (s *stubStore) ListLogsByNotice(context.Context, uuid.UUID) ([]NoticeReader, error) {
	if s.readersErr != nil {
		return nil, s.readersErr
	}
	return s.readers, nil
}

func partnerCaps(agencyID uuid.UUID, agencyName string) *capability.Capabilities {
	return &capability.Capabilities{
		UserID:         uuid.New(),
		Email:          "agent@partner.example",
		AgencyID:       &agencyID,
		AgencyName:     agencyName,
		CommissionRate: decimal.RequireFromString("0.10"),
		CanAccessMural: true,
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newStubStore()
	noticeID, _ := store.CreateNotice(context.Background(), Notice{Title: "Season opening"})

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	current := base
	svc := &Service{Store: store, Logger: zerolog.Nop(), Now: func() time.Time { return current }}

	caps := partnerCaps(uuid.New(), "Patagonia Travel")
	if err := svc.Confirm(context.Background(), caps, noticeID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	current = base.Add(2 * time.Hour)
	if err := svc.Confirm(context.Background(), caps, noticeID); err != nil {
		t.Fatalf("second confirm must not error: %v", err)
	}

	if len(store.logs) != 1 {
		t.Fatalf("expected exactly one log row, got %d", len(store.logs))
	}
	if store.upsertCalls != 2 {
		t.Fatalf("expected 2 upsert calls, got %d", store.upsertCalls)
	}
	log, err := store.FindLog(context.Background(), caps.UserID, noticeID)
	if err != nil || log == nil {
		t.Fatalf("log missing after confirm: %v", err)
	}
	if !log.ConfirmedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("timestamp not refreshed: %s", log.ConfirmedAt)
	}
}

func TestConfirmUnknownNotice(t *testing.T) {
	svc := &Service{Store: newStubStore(), Logger: zerolog.Nop()}
	err := svc.Confirm(context.Background(), partnerCaps(uuid.New(), "X"), uuid.New())
	if err == nil {
		t.Fatal("confirming a missing notice must fail")
	}
}

func TestConfirmRequiresCapabilities(t *testing.T) {
	svc := &Service{Store: newStubStore(), Logger: zerolog.Nop()}
	if err := svc.Confirm(context.Background(), nil, uuid.New()); err == nil {
		t.Fatal("nil capabilities must be rejected")
	}
}

func TestListForUserAnnotatesReadState(t *testing.T) {
	store := newStubStore()
	readID, _ := store.CreateNotice(context.Background(), Notice{Title: "read"})
	unreadID, _ := store.CreateNotice(context.Background(), Notice{Title: "unread"})

	svc := &Service{Store: store, Logger: zerolog.Nop()}
	caps := partnerCaps(uuid.New(), "Patagonia Travel")
	if err := svc.Confirm(context.Background(), caps, readID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	notices, err := svc.ListForUser(context.Background(), caps.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	states := map[uuid.UUID]NoticeWithState{}
	for _, n := range notices {
		states[n.ID] = n
	}
	if !states[readID].Read || states[readID].ConfirmedAt == nil {
		t.Fatal("confirmed notice not marked read")
	}
	if states[unreadID].Read || states[unreadID].ConfirmedAt != nil {
		t.Fatal("unconfirmed notice marked read")
	}
}

func TestReadersOfScopesToAgency(t *testing.T) {
	agencyID := uuid.New()
	otherID := uuid.New()
	store := newStubStore()
	store.readers = []NoticeReader{
		{UserID: uuid.New(), UserName: "Same by id", AgencyID: &agencyID, AgencyName: "Renamed Agency"},
		{UserID: uuid.New(), UserName: "Same by name", AgencyID: nil, AgencyName: " patagonia TRAVEL "},
		{UserID: uuid.New(), UserName: "Other", AgencyID: &otherID, AgencyName: "Someone Else"},
	}
	svc := &Service{Store: store, Logger: zerolog.Nop()}

	readers := svc.ReadersOf(context.Background(), uuid.New(), &agencyID, "Patagonia Travel", false)
	if len(readers) != 2 {
		t.Fatalf("expected 2 scoped readers, got %d", len(readers))
	}
	for _, r := range readers {
		if r.UserName == "Other" {
			t.Fatal("foreign agency reader leaked")
		}
	}
}

func TestReadersOfAdminSeesAll(t *testing.T) {
	store := newStubStore()
	store.readers = []NoticeReader{
		{UserName: "a", AgencyName: "one"},
		{UserName: "b", AgencyName: "two"},
	}
	svc := &Service{Store: store, Logger: zerolog.Nop()}

	readers := svc.ReadersOf(context.Background(), uuid.New(), nil, "", true)
	if len(readers) != 2 {
		t.Fatalf("admin should see all readers, got %d", len(readers))
	}
}

func TestReadersOfSwallowsStorageErrors(t *testing.T) {
	store := newStubStore()
	store.readersErr = errors.New("connection reset")
	svc := &Service{Store: store, Logger: zerolog.Nop()}

	readers := svc.ReadersOf(context.Background(), uuid.New(), nil, "", true)
	if readers == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(readers) != 0 {
		t.Fatalf("expected empty reader list on storage failure, got %d", len(readers))
	}
}

func TestPublishRequiresTitle(t *testing.T) {
	svc := &Service{Store: newStubStore(), Logger: zerolog.Nop()}
	if _, err := svc.Publish(context.Background(), "   ", "body", false); err == nil {
		t.Fatal("blank title must be rejected")
	}
}

func TestRemoveUnknownNotice(t *testing.T) {
	svc := &Service{Store: newStubStore(), Logger: zerolog.Nop()}
	if err := svc.Remove(context.Background(), uuid.New()); err == nil {
		t.Fatal("deleting a missing notice must fail")
	}
}
