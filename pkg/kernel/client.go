// Package kernel implements the transport-neutral Kernel Client surface
// (spec §6): the single entry point an orchestrator, CLI, or test drives.
// Direct in-process calls are the reference binding — no network
// transport is modeled (spec §1 non-goal). Every transaction operation
// returns a Result envelope (CreateSession and CloseSession return a
// plain error); only ConfigurationMissing and
// FinancialIntegrityViolation are allowed to escape as panics (spec §7).
package kernel

import (
	"github.com/shopspring/decimal"

	"poskernel/pkg/errs"
	"poskernel/pkg/ids"
	sessionmodel "poskernel/pkg/session/domain/model"
	sessionsvc "poskernel/pkg/session/domain/service"
	txmodel "poskernel/pkg/transaction/domain/model"
	txsvc "poskernel/pkg/transaction/domain/service"
)

// Result is the §6 result envelope: {success, transaction?, errors,
// warnings}. Kind classifies a failure per spec §7 — callers branch on it
// instead of string-matching an Errors entry — and is left at its zero
// value on a successful Result.
type Result struct {
	Success     bool
	Transaction *txmodel.Transaction
	Kind        errs.Kind
	Errors      []string
	Warnings    []string
}

// failureFrom builds a failure Result from a domain error, classifying it
// via errs.Classify. An error that was never wrapped into an *errs.Error
// (a collaborator bug this client did not anticipate) still surfaces its
// message, with Kind left unclassified rather than guessed at.
func failureFrom(err error) Result {
	result := Result{Success: false, Errors: []string{err.Error()}}
	if kind, ok := errs.Classify(err); ok {
		result.Kind = kind
	}
	return result
}

func success(tx *txmodel.Transaction, warnings ...string) Result {
	return Result{Success: true, Transaction: tx, Warnings: warnings}
}

// Client is the Kernel Client contract (spec §6).
type Client interface {
	CreateSession(terminalID, operatorID string) (string, error)
	StartTransaction(sessionID, currency string) Result
	AddLineItem(sessionID, txID string, req txsvc.AddLineItemRequest) Result
	ProcessPayment(sessionID, txID string, amount decimal.Decimal, paymentType string) Result
	VoidLineItem(sessionID, txID string, lineItemID ids.LineItemID, reason string) Result
	VoidTransaction(sessionID, txID, reason string) Result
	GetTransaction(sessionID, txID string) Result
	CloseSession(sessionID string) error
}

// NewClient wires a Session Manager and Transaction Engine into one
// Client. Both are required collaborators — a nil one is a
// ConfigurationMissing defect caught here at construction (spec §7, §9),
// not deferred to a runtime nil check.
func NewClient(sessions sessionsvc.Manager, engine txsvc.Engine) Client {
	if sessions == nil {
		errs.ConfigurationMissingf("kernel: session manager must not be nil")
	}
	if engine == nil {
		errs.ConfigurationMissingf("kernel: transaction engine must not be nil")
	}
	return &client{sessions: sessions, engine: engine}
}

type client struct {
	sessions sessionsvc.Manager
	engine   txsvc.Engine
}

func (c *client) CreateSession(terminalID, operatorID string) (string, error) {
	session, err := c.sessions.CreateSession(terminalID, operatorID)
	if err != nil {
		return "", err
	}
	return string(session.ID), nil
}

func (c *client) CloseSession(sessionID string) error {
	return c.sessions.CloseSession(sessionID)
}

func (c *client) StartTransaction(sessionID, currency string) Result {
	tx, err := c.engine.StartTransaction(sessionID, currency)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

func (c *client) AddLineItem(sessionID, txID string, req txsvc.AddLineItemRequest) Result {
	tx, err := c.engine.AddLineItem(sessionID, txID, req)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

func (c *client) ProcessPayment(sessionID, txID string, amount decimal.Decimal, paymentType string) Result {
	tx, err := c.engine.ProcessPayment(sessionID, txID, amount, paymentType)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

func (c *client) VoidLineItem(sessionID, txID string, lineItemID ids.LineItemID, reason string) Result {
	tx, err := c.engine.VoidLineItem(sessionID, txID, lineItemID, reason)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

func (c *client) VoidTransaction(sessionID, txID, reason string) Result {
	tx, err := c.engine.VoidTransaction(sessionID, txID, reason)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

func (c *client) GetTransaction(sessionID, txID string) Result {
	tx, err := c.engine.GetTransaction(sessionID, txID)
	if err != nil {
		return failureFrom(err)
	}
	return success(tx)
}

// errSessionUnavailable is returned by NewStandardClient's default wiring
// when asked to build a session manager over a nil repository; kept here
// (rather than in pkg/session) since it is this package's own
// construction-time guard.
var errSessionUnavailable = errs.New(errs.ConfigurationMissing, "kernel: session repository must not be nil")

// NewStandardClient is a convenience constructor that builds a Session
// Manager over repo and pairs it with the caller's engine (which already
// carries its payment rules), matching the teacher's pattern of a thin composition root (cmd/poskernel) calling a
// single constructor rather than wiring every collaborator by hand at
// every call site.
func NewStandardClient(repo sessionmodel.Repository, engine txsvc.Engine) (Client, error) {
	if repo == nil {
		return nil, errSessionUnavailable
	}
	manager := sessionsvc.NewManager(repo)
	return NewClient(manager, engine), nil
}
