package storeext

import "poskernel/pkg/errs"

// Extension composes the three sub-services a store contributes to the
// kernel (spec §2, §4.3). The Transaction Engine never depends on
// Extension directly — the Kernel Client and tool handlers consult it for
// validation/pricing and pass plain values into engine calls, matching
// spec §2's flow: "engine consults the Store Extension for validation/
// pricing as needed."
type Extension struct {
	StoreID           string
	Catalog           Catalog
	Modifications     Modifications
	CurrencyFormatter CurrencyFormatter
}

// New constructs a Store Extension. All three collaborators are required
// — a nil one is a ConfigurationMissing defect caught at construction,
// per spec §9's "constructor-time required collaborators" design note
// rather than a nil check deferred to first use.
func New(storeID string, catalog Catalog, modifications Modifications, formatter CurrencyFormatter) *Extension {
	if catalog == nil {
		errs.ConfigurationMissingf("storeext: catalog must not be nil")
	}
	if modifications == nil {
		errs.ConfigurationMissingf("storeext: modifications must not be nil")
	}
	if formatter == nil {
		errs.ConfigurationMissingf("storeext: currencyFormatter must not be nil")
	}
	return &Extension{
		StoreID:           storeID,
		Catalog:           catalog,
		Modifications:     modifications,
		CurrencyFormatter: formatter,
	}
}
