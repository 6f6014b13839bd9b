package session

import "poskernel/pkg/session/domain/service"

// Validator adapts a Manager to the narrow ValidateSession(string) error
// shape the Transaction Engine (and other kernel collaborators) depend on,
// so those packages never need to import the full session.Manager
// interface just to check liveness.
type Validator struct {
	manager service.Manager
}

// NewValidator wraps mgr.
func NewValidator(mgr service.Manager) *Validator {
	return &Validator{manager: mgr}
}

// ValidateSession discards the resolved *model.Session and returns only
// the error, matching the engine's SessionValidator contract.
func (v *Validator) ValidateSession(sessionID string) error {
	_, err := v.manager.ValidateSession(sessionID)
	return err
}
