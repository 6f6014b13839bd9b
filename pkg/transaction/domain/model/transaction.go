// Package model holds the Transaction Engine's value types: Transaction,
// TransactionLine, their lifecycle states, and the pure aggregation helpers
// that recalculate() and assertIntegrity() share (spec §3, §4.2).
package model

import (
	"poskernel/pkg/ids"
	"poskernel/pkg/money"
)

// State is a transaction's lifecycle state (spec §3).
type State int

const (
	StartTransaction State = iota
	ItemsPending
	EndOfTransaction
	Voided
)

func (s State) String() string {
	switch s {
	case StartTransaction:
		return "StartTransaction"
	case ItemsPending:
		return "ItemsPending"
	case EndOfTransaction:
		return "EndOfTransaction"
	case Voided:
		return "Voided"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether state rejects all further mutation (spec
// §3: "A closed or voided transaction rejects all mutation").
func (s State) IsTerminal() bool {
	return s == EndOfTransaction || s == Voided
}

// LineType distinguishes merchandise, tender, and change lines (spec §3).
type LineType int

const (
	Item LineType = iota
	Tender
	Change
)

func (t LineType) String() string {
	switch t {
	case Item:
		return "Item"
	case Tender:
		return "Tender"
	case Change:
		return "Change"
	default:
		return "Unknown"
	}
}

// Line is a single row in a transaction (spec §3). LineItemID is stable
// across voids; LineNumber is the 1-based position and MUST NOT be treated
// as identity by any caller — RenumberLines recomputes it from the line's
// position in Transaction.Lines after every mutation.
type Line struct {
	LineItemID          ids.LineItemID
	LineNumber          int
	ParentLineItemID    *ids.LineItemID
	ProductID           ids.ProductID
	ProductName         string
	ProductDescription  string
	Quantity            int64
	UnitPrice           money.Money
	Extended            money.Money
	LineType            LineType
	TenderType          string
	IsVoided            bool
	VoidReason          string
	DisplayIndentLevel  int
	Metadata            map[string]string
}

// Transaction is the kernel's authoritative record of one sale (spec §3).
// It is held in memory for the lifetime of the owning Engine instance —
// persistence is an explicit non-goal (spec §1).
type Transaction struct {
	ID         ids.TransactionID
	State      State
	Currency   string
	Lines      []Line
	Total      money.Money
	Tendered   money.Money
	ChangeDue  money.Money
	BalanceDue money.Money
}

// FindLine returns a pointer to the line with the given id, or nil.
func (t *Transaction) FindLine(id ids.LineItemID) *Line {
	for i := range t.Lines {
		if t.Lines[i].LineItemID == id {
			return &t.Lines[i]
		}
	}
	return nil
}

// Clone returns a deep-enough copy for snapshot returns: the Lines slice
// and each line's Metadata map are copied so a caller mutating a returned
// snapshot cannot corrupt engine state.
func (t *Transaction) Clone() *Transaction {
	clone := *t
	clone.Lines = make([]Line, len(t.Lines))
	for i, line := range t.Lines {
		lineCopy := line
		if line.ParentLineItemID != nil {
			parent := *line.ParentLineItemID
			lineCopy.ParentLineItemID = &parent
		}
		if line.Metadata != nil {
			lineCopy.Metadata = make(map[string]string, len(line.Metadata))
			for k, v := range line.Metadata {
				lineCopy.Metadata[k] = v
			}
		}
		clone.Lines[i] = lineCopy
	}
	return &clone
}

// RenumberLines assigns 1-based LineNumber values reflecting current
// position. Called after every structural mutation; LineNumber is the only
// "shifting" field besides IsVoided (spec §9 design note).
func (t *Transaction) RenumberLines() {
	for i := range t.Lines {
		t.Lines[i].LineNumber = i + 1
	}
}

// DescendantsOf returns the set of line item ids reachable from root via
// ParentLineItemID edges, via breadth-first walk, not including root
// itself. Used by voidLineItem's cascade (spec §4.2, §8 property 4);
// assertIntegrity checks only each line's direct parent.
func (t *Transaction) DescendantsOf(root ids.LineItemID) []ids.LineItemID {
	childrenByParent := make(map[ids.LineItemID][]ids.LineItemID)
	for _, line := range t.Lines {
		if line.ParentLineItemID != nil {
			childrenByParent[*line.ParentLineItemID] = append(childrenByParent[*line.ParentLineItemID], line.LineItemID)
		}
	}

	var result []ids.LineItemID
	queue := []ids.LineItemID{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range childrenByParent[current] {
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result
}
