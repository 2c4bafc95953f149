package mural

import (
	"time"

	"github.com/google/uuid"
)

// Notice is an operational bulletin published by the back office.
type Notice struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReadLog records a single user's confirmation of a notice. The agency
// identity is denormalized at write time so reader queries can scope without
// joining back through users; some historical rows carry only the name.
type ReadLog struct {
	UserID      uuid.UUID  `json:"userId"`
	NoticeID    uuid.UUID  `json:"noticeId"`
	AgencyID    *uuid.UUID `json:"agencyId,omitempty"`
	AgencyName  string     `json:"agencyName,omitempty"`
	ConfirmedAt time.Time  `json:"confirmedAt"`
}

// Reader is one entry in the per-notice reader list.
type Reader struct {
	UserName    string    `json:"userName"`
	AgencyName  string    `json:"agencyName,omitempty"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// NoticeWithState pairs a notice with the requesting user's read state.
type NoticeWithState struct {
	Notice
	Read        bool       `json:"read"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}
