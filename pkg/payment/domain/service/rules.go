// Package service implements Payment Rules (spec §4.4): pluggable,
// culture-neutral tender normalization and the "may this tender issue
// change" predicate. The Transaction Engine depends only on the Rules
// interface — never on a concrete policy — matching the teacher's
// constructor-injected collaborator pattern (service.NewXService(repo,
// dispatcher)).
package service

import "strings"

// Rules is the Payment Rules contract (spec §4.4).
type Rules interface {
	// NormalizeTenderType returns the canonical form of raw, or ("", false)
	// when raw is not a recognized tender. The engine treats a false
	// result as InvalidPaymentType.
	NormalizeTenderType(raw string) (canonical string, ok bool)
	// CanIssueChange reports whether an overpay on this canonical tender
	// may be returned as a Change line.
	CanIssueChange(canonical string) bool
	// RequiresExact reports whether this canonical tender rejects any
	// tendered amount that does not equal the balance due exactly.
	RequiresExact(canonical string) bool
}

// DefaultRules is the spec's default policy: any non-blank trimmed string
// is a valid canonical tender; only "cash" (case-insensitive) permits
// change; nothing requires an exact tender.
func DefaultRules() Rules {
	return defaultRules{}
}

type defaultRules struct{}

func (defaultRules) NormalizeTenderType(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func (defaultRules) CanIssueChange(canonical string) bool {
	return strings.EqualFold(canonical, "cash")
}

func (defaultRules) RequiresExact(string) bool {
	return false
}

// NewStoreAwareRules builds a Rules implementation driven by a store's
// declared PaymentTenderType set (spec §4.4: "Store extensions MAY supply
// richer policies driven by PaymentTenderType flags"). Tender ids are
// matched case-insensitively, matching the modifier engine's id-comparison
// convention (spec §4.3).
//
// Open Question 4 decision: when a tender type has both AllowsChange=true
// and RequiresExact=true, RequiresExact wins — an exact-tender type never
// issues change, because "exact" is the strictly stronger constraint.
func NewStoreAwareRules(types []TenderTypeLike) Rules {
	byID := make(map[string]TenderTypeLike, len(types))
	for _, t := range types {
		byID[strings.ToLower(t.TenderID())] = t
	}
	return storeAwareRules{byID: byID}
}

// TenderTypeLike is the minimal view NewStoreAwareRules needs from a
// store's PaymentTenderType, so this package never imports the store's
// model package directly (avoids an import cycle between payment and
// storeext).
type TenderTypeLike interface {
	TenderID() string
	AllowsTenderChange() bool
	RequiresExactTender() bool
}

type storeAwareRules struct {
	byID map[string]TenderTypeLike
}

func (r storeAwareRules) NormalizeTenderType(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if _, known := r.byID[strings.ToLower(trimmed)]; !known {
		return "", false
	}
	return trimmed, true
}

func (r storeAwareRules) CanIssueChange(canonical string) bool {
	t, ok := r.byID[strings.ToLower(canonical)]
	if !ok {
		return false
	}
	if t.RequiresExactTender() {
		return false
	}
	return t.AllowsTenderChange()
}

func (r storeAwareRules) RequiresExact(canonical string) bool {
	t, ok := r.byID[strings.ToLower(canonical)]
	if !ok {
		return false
	}
	return t.RequiresExactTender()
}
