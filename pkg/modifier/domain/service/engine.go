// Package service implements the Modifier Rule Engine (spec §4.3): a
// data-driven validator over a store's modifier graph. No modifier code is
// ever hardcoded here — every rule comes from the Graph loaded at store
// activation.
package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"poskernel/pkg/modifier/domain/model"
)

// Selection is one caller-supplied modifier pick (spec §4.3 step 1).
// Group, when non-empty, must match the modifier's stored group.
type Selection struct {
	ModifierID string
	Group      string
	Quantity   int64
}

// ValidationResult is the outcome of Validate (spec §4.3 step 8 +
// §4.1 catalog.validateModifications shape).
type ValidationResult struct {
	IsValid         bool
	TotalExtraPrice decimal.Decimal
	ErrorMessage    string
	ClosedSet       []string // resolved modifier ids, including implied ones, for callers that need the full set
}

// Engine is the Modifier Rule Engine contract.
type Engine interface {
	// Validate runs the eight-step algorithm of spec §4.3 against
	// productID and selections.
	Validate(productID string, selections []Selection) ValidationResult
	// CalculateTotal sums value*quantity over the Surcharge modifiers among
	// selections, without re-running the validity checks; unknown ids are
	// skipped and implications are not expanded. Validate prices the full
	// closure as step 8; CalculateTotal exists standalone because spec
	// §4.1 names modifications.calculateModificationTotal as a distinct
	// catalog operation.
	CalculateTotal(selections []Selection) decimal.Decimal
	// AutomaticModifiers returns the modifiers flagged IsAutomatic for a
	// product — loaded metadata only; the engine never injects these
	// into a selection itself (Open Question 1 decision, SPEC_FULL §9).
	AutomaticModifiers(productID string) []model.Modifier
}

// NewEngine constructs a Modifier Rule Engine over an already-loaded
// Graph. Loading the graph from a store database is pkg/storedb's
// concern; this package is pure in-memory logic so its determinism (spec
// §8 property 6) is trivially testable.
func NewEngine(graph *model.Graph) Engine {
	return &engine{graph: graph}
}

type engine struct {
	graph *model.Graph
}

func (e *engine) Validate(productID string, selections []Selection) ValidationResult {
	sku := strings.ToLower(productID)

	// Step 1: resolve each selection by id; unknown -> fail. Group, if
	// given, must match the modifier's stored group.
	quantityByID := make(map[string]int64)
	var order []string
	for _, sel := range selections {
		id := strings.ToLower(sel.ModifierID)
		mod, ok := e.graph.Modifiers[id]
		if !ok {
			return invalid(fmt.Sprintf("Modifier '%s' is not known.", sel.ModifierID))
		}
		if sel.Group != "" && !strings.EqualFold(sel.Group, mod.GroupCode) {
			return invalid(fmt.Sprintf("Modifier '%s' does not belong to group '%s'.", sel.ModifierID, sel.Group))
		}

		// Step 2: applicability.
		if !e.isApplicable(sku, id) {
			return invalid(fmt.Sprintf("Modifier '%s' not applicable to product '%s'.", sel.ModifierID, productID))
		}

		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		if _, seen := quantityByID[id]; !seen {
			order = append(order, id)
		}
		quantityByID[id] += qty
	}

	// Step 3: closure under implications. Implied modifiers unknown to
	// the graph are silently skipped (advisory metadata, spec §4.3 step
	// 3 and §9 Open Question 2). An implied modifier must itself be
	// applicable to the product or the implication is skipped rather
	// than failing the whole validation — implications are advisory.
	closure := append([]string{}, order...)
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		seen[id] = true
	}
	for i := 0; i < len(closure); i++ {
		for _, impliedID := range e.graph.Implications[closure[i]] {
			impliedID = strings.ToLower(impliedID)
			if _, known := e.graph.Modifiers[impliedID]; !known {
				continue
			}
			if !e.isApplicable(sku, impliedID) {
				continue
			}
			if seen[impliedID] {
				continue
			}
			seen[impliedID] = true
			closure = append(closure, impliedID)
			if _, has := quantityByID[impliedID]; !has {
				quantityByID[impliedID] = 1
			}
		}
	}

	// Step 4: pairwise modifier incompatibilities over the closed set.
	for _, a := range closure {
		for _, b := range closure {
			if a == b {
				continue
			}
			if e.graph.ModifierIncompatibilities[a][b] {
				return invalid(fmt.Sprintf("Modifier '%s' cannot be combined with modifier '%s'.",
					e.displayName(a), e.displayName(b)))
			}
		}
	}

	// Step 5: group incompatibilities.
	for _, a := range closure {
		forbiddenGroups := e.graph.GroupIncompatibilities[a]
		if len(forbiddenGroups) == 0 {
			continue
		}
		for _, b := range closure {
			if a == b {
				continue
			}
			bGroup := strings.ToLower(e.graph.Modifiers[b].GroupCode)
			if forbiddenGroups[bGroup] {
				return invalid(fmt.Sprintf("Modifier '%s' cannot be combined with group '%s'.",
					e.displayName(a), e.graph.Modifiers[b].GroupCode))
			}
		}
	}

	// Step 6: single-select groups allow at most one distinct modifier.
	byGroup := make(map[string][]string)
	for _, id := range closure {
		group := strings.ToLower(e.graph.Modifiers[id].GroupCode)
		byGroup[group] = append(byGroup[group], id)
	}
	for groupCode, members := range byGroup {
		group, ok := e.graph.Groups[groupCode]
		if ok && group.SingleSelect && len(members) > 1 {
			return invalid(fmt.Sprintf("Only one selection is allowed in group '%s'.", group.Code))
		}
	}

	// Step 7: required groups must have a representative (checked last
	// so implied selections can satisfy them, spec §4.3 ordering note).
	groupCodes := make([]string, 0, len(e.graph.Groups))
	for code := range e.graph.Groups {
		groupCodes = append(groupCodes, code)
	}
	sort.Strings(groupCodes)
	for _, code := range groupCodes {
		group := e.graph.Groups[code]
		if !group.Required {
			continue
		}
		if len(byGroup[code]) == 0 {
			return invalid(fmt.Sprintf("Required group '%s' has no selection.", group.Code))
		}
	}

	// Step 8: price the closed set. Deterministic ordering (spec §4.3
	// ordering note: "modifier ordering within a group is deterministic
	// by displayOrder") even though price is a simple sum, so that
	// ClosedSet is reproducible for callers/tests.
	sort.Slice(closure, func(i, j int) bool {
		mi, mj := e.graph.Modifiers[closure[i]], e.graph.Modifiers[closure[j]]
		if mi.DisplayOrder != mj.DisplayOrder {
			return mi.DisplayOrder < mj.DisplayOrder
		}
		return closure[i] < closure[j]
	})

	total := decimal.Zero
	for _, id := range closure {
		mod := e.graph.Modifiers[id]
		if mod.AdjustmentKind == model.Surcharge {
			total = total.Add(mod.Value.Mul(decimal.NewFromInt(quantityByID[id])))
		}
	}

	return ValidationResult{IsValid: true, TotalExtraPrice: total, ClosedSet: closure}
}

func (e *engine) CalculateTotal(selections []Selection) decimal.Decimal {
	total := decimal.Zero
	for _, sel := range selections {
		mod, ok := e.graph.Modifiers[strings.ToLower(sel.ModifierID)]
		if !ok || mod.AdjustmentKind != model.Surcharge {
			continue
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		total = total.Add(mod.Value.Mul(decimal.NewFromInt(qty)))
	}
	return total
}

func (e *engine) AutomaticModifiers(productID string) []model.Modifier {
	sku := strings.ToLower(productID)
	var result []model.Modifier
	for id, applicable := range e.graph.Applicability[sku] {
		if !applicable {
			continue
		}
		if mod, ok := e.graph.Modifiers[id]; ok && mod.IsAutomatic {
			result = append(result, mod)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DisplayOrder < result[j].DisplayOrder })
	return result
}

func (e *engine) isApplicable(sku, modifierID string) bool {
	bySku, ok := e.graph.Applicability[sku]
	if !ok {
		return false
	}
	return bySku[modifierID]
}

func (e *engine) displayName(modifierID string) string {
	if mod, ok := e.graph.Modifiers[modifierID]; ok {
		return mod.Name
	}
	return modifierID
}

func invalid(message string) ValidationResult {
	return ValidationResult{IsValid: false, ErrorMessage: message}
}
