// Package model holds the Modifier Rule Engine's graph types (spec §3,
// §4.3): modifiers, their groups, and the relations loaded from a store
// database — applicability, implications, incompatibilities, group
// incompatibilities, and group membership.
package model

import "github.com/shopspring/decimal"

// AdjustmentKind distinguishes a free modifier from a priced surcharge.
type AdjustmentKind int

const (
	Free AdjustmentKind = iota
	Surcharge
)

// Modifier is a single selectable product attribute (spec §3). Value is a
// decimal.Decimal, matching pkg/money's no-rounding arithmetic — a
// surcharge accumulates exactly over repeated selections, the same
// guarantee spec §3/§4.2 require of the transaction total itself.
type Modifier struct {
	ID             string
	Name           string
	GroupCode      string
	AdjustmentKind AdjustmentKind
	Value          decimal.Decimal
	IsAutomatic    bool
	DisplayOrder   int
}

// Group is a modifier group (spec §3). SingleSelect groups allow at most
// one member in a closure; Required groups must have at least one
// representative.
type Group struct {
	Code         string
	Name         string
	SingleSelect bool
	Required     bool
}

// Graph is the fully-loaded, immutable modifier graph for one store,
// loaded once at store activation (spec §5: "no concurrent writers").
type Graph struct {
	Modifiers                 map[string]Modifier        // lower(modifierId) -> Modifier
	Groups                    map[string]Group           // lower(groupCode) -> Group
	Applicability             map[string]map[string]bool // lower(sku) -> set(lower(modifierId))
	Implications              map[string][]string         // lower(modifierId) -> []lower(modifierId)
	ModifierIncompatibilities map[string]map[string]bool // lower(modifierId) -> set(lower(modifierId))
	GroupIncompatibilities    map[string]map[string]bool // lower(modifierId) -> set(lower(groupCode))
}
