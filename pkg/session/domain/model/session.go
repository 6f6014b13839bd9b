package model

import (
	"time"

	"poskernel/pkg/errs"
	"poskernel/pkg/ids"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errs.New(errs.InvalidArgument, "session not found")
	// ErrSessionClosed is returned when an operation targets a closed
	// session.
	ErrSessionClosed = errs.New(errs.IllegalState, "session is closed")
)

// Session is an operator session keyed by (terminalId, operatorId).
type Session struct {
	ID         ids.SessionID
	TerminalID string
	OperatorID string
	CreatedUtc time.Time
	Closed     bool
}

// Repository is the session store. The reference kernel binding keeps
// sessions in memory for the process lifetime (spec §5: "Sessions are held
// in a concurrent map keyed by session id").
type Repository interface {
	NextID() ids.SessionID
	Create(session *Session) error
	Find(id ids.SessionID) (*Session, error)
	Update(session *Session) error
}
