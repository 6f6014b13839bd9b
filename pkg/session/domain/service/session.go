// Package service implements the Session Manager (spec §4.1): constant-time
// creation, validation, and idempotent closing of operator sessions. There
// are no suspension points — every operation is a map lookup.
package service

import (
	"time"

	"poskernel/pkg/errs"
	"poskernel/pkg/ids"
	"poskernel/pkg/session/domain/model"
)

var (
	// ErrBlankTerminalID is returned when terminalId is empty.
	ErrBlankTerminalID = errs.New(errs.InvalidArgument, "terminalId must not be blank")
	// ErrBlankOperatorID is returned when operatorId is empty.
	ErrBlankOperatorID = errs.New(errs.InvalidArgument, "operatorId must not be blank")
)

// Manager is the Session Manager contract.
type Manager interface {
	CreateSession(terminalID, operatorID string) (*model.Session, error)
	ValidateSession(sessionID string) (*model.Session, error)
	CloseSession(sessionID string) error
}

// NewManager constructs a Session Manager backed by repo.
func NewManager(repo model.Repository) Manager {
	return &sessionManager{repo: repo}
}

type sessionManager struct {
	repo model.Repository
}

func (m *sessionManager) CreateSession(terminalID, operatorID string) (*model.Session, error) {
	if terminalID == "" {
		return nil, ErrBlankTerminalID
	}
	if operatorID == "" {
		return nil, ErrBlankOperatorID
	}

	session := &model.Session{
		ID:         m.repo.NextID(),
		TerminalID: terminalID,
		OperatorID: operatorID,
		CreatedUtc: time.Now().UTC(),
		Closed:     false,
	}

	if err := m.repo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession fails when the session is unknown or closed. Every
// kernel mutation calls this first (spec §4.2).
func (m *sessionManager) ValidateSession(sessionID string) (*model.Session, error) {
	session, err := m.repo.Find(ids.SessionID(sessionID))
	if err != nil {
		return nil, model.ErrSessionNotFound
	}
	if session.Closed {
		return nil, model.ErrSessionClosed
	}
	return session, nil
}

// CloseSession is idempotent: closing an already-closed session is a
// no-op. Operations against it thereafter still fail via ValidateSession.
func (m *sessionManager) CloseSession(sessionID string) error {
	session, err := m.repo.Find(ids.SessionID(sessionID))
	if err != nil {
		return model.ErrSessionNotFound
	}
	if session.Closed {
		return nil
	}
	session.Closed = true
	return m.repo.Update(session)
}
