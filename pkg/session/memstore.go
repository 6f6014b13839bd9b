// Package session provides the reference in-process Session Manager
// binding: sessions live in a concurrent map for the process lifetime, per
// spec §5 ("Sessions are held in a concurrent map keyed by session id").
package session

import (
	"sync"

	"poskernel/pkg/ids"
	"poskernel/pkg/session/domain/model"
)

// NewInMemoryRepository constructs the reference Repository: a map guarded
// by a single RWMutex shared by all sessions. Concurrent Find calls proceed
// together; Create and Update take the lock exclusively for every session
// id, matching the teacher's "single connection, serial access" texture.
func NewInMemoryRepository() model.Repository {
	return &inMemoryRepository{sessions: make(map[ids.SessionID]*model.Session)}
}

type inMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[ids.SessionID]*model.Session
}

func (r *inMemoryRepository) NextID() ids.SessionID {
	return ids.NewSessionID()
}

func (r *inMemoryRepository) Create(session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *inMemoryRepository) Find(id ids.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (r *inMemoryRepository) Update(session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return model.ErrSessionNotFound
	}
	updated := *session
	r.sessions[session.ID] = &updated
	return nil
}
