// Package ids defines the kernel's opaque identifier types. Every
// kernel-generated identifier is a UUID under the hood, matching the
// teacher services' repo.NextID() (uuid.UUID, error) convention; callers
// never construct or parse these beyond round-tripping the string form.
package ids

import "github.com/google/uuid"

// SessionID identifies an operator session.
type SessionID string

// TransactionID identifies a transaction.
type TransactionID string

// LineItemID identifies a transaction line. Stable across voids.
type LineItemID string

// ProductID identifies a catalog product (a SKU). Never kernel-generated —
// callers and the catalog assign these.
type ProductID string

// NewSessionID mints a fresh, random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New().String()) }

// NewTransactionID mints a fresh, random transaction identifier.
func NewTransactionID() TransactionID { return TransactionID(uuid.New().String()) }

// NewLineItemID mints a fresh, random line item identifier.
func NewLineItemID() LineItemID { return LineItemID(uuid.New().String()) }

func (s SessionID) String() string     { return string(s) }
func (t TransactionID) String() string { return string(t) }
func (l LineItemID) String() string    { return string(l) }
func (p ProductID) String() string     { return string(p) }
