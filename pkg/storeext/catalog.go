// Package storeext implements the Store Extension contract (spec §4.3):
// the three sub-services — catalog, modifications, currencyFormatter —
// that a store composes over its own catalog database. The kernel never
// synthesizes product data or business rules; every answer here is
// data-driven, loaded at store activation (spec §5).
package storeext

import (
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	modifiersvc "poskernel/pkg/modifier/domain/service"
	"poskernel/pkg/storedb"
)

// ProductInfo mirrors spec §3's ProductInfo value type.
type ProductInfo struct {
	SKU         string
	Name        string
	Description string
	Category    string
	BasePrice   decimal.Decimal
	IsActive    bool
}

// ValidateProductResult is catalog.validateProduct's return shape (spec
// §4.3).
type ValidateProductResult struct {
	IsValid       bool
	Product       *ProductInfo
	EffectivePrice decimal.Decimal
	ErrorMessage  string
}

// Catalog is the catalog sub-service contract (spec §4.3).
type Catalog interface {
	ValidateProduct(productID string) ValidateProductResult
	SearchProducts(term string, maxResults int) ([]ProductInfo, error)
	GetPopularItems() ([]ProductInfo, error)
}

// NewCatalog constructs the reference Catalog binding over a per-store
// catalog database opened through pkg/storedb. popularSKUs is a small,
// store-declared list (the spec names no ranking algorithm; a store that
// wants one supplies its own Catalog implementation).
func NewCatalog(db *sqlx.DB, popularSKUs []string) Catalog {
	return &sqlCatalog{db: db, popularSKUs: popularSKUs}
}

type sqlCatalog struct {
	db          *sqlx.DB
	popularSKUs []string
}

func (c *sqlCatalog) ValidateProduct(productID string) ValidateProductResult {
	row, err := storedb.FindProduct(c.db, productID)
	if err != nil {
		log.WithFields(log.Fields{"productId": productID}).WithError(err).Warn("storeext: product lookup failed")
		return ValidateProductResult{IsValid: false, ErrorMessage: "Product '" + productID + "' was not found."}
	}
	if !row.IsActive {
		return ValidateProductResult{IsValid: false, ErrorMessage: "Product '" + productID + "' is not active."}
	}
	info := toProductInfo(*row)
	return ValidateProductResult{IsValid: true, Product: &info, EffectivePrice: info.BasePrice}
}

func (c *sqlCatalog) SearchProducts(term string, maxResults int) ([]ProductInfo, error) {
	rows, err := storedb.SearchProducts(c.db, term, maxResults)
	if err != nil {
		return nil, err
	}
	return toProductInfos(rows), nil
}

func (c *sqlCatalog) GetPopularItems() ([]ProductInfo, error) {
	var result []ProductInfo
	for _, sku := range c.popularSKUs {
		row, err := storedb.FindProduct(c.db, sku)
		if err != nil {
			log.WithFields(log.Fields{"sku": sku}).WithError(err).Warn("storeext: popular item not found, skipping")
			continue
		}
		if !row.IsActive {
			continue
		}
		result = append(result, toProductInfo(*row))
	}
	return result, nil
}

func toProductInfo(row storedb.ProductRow) ProductInfo {
	return ProductInfo{
		SKU:         row.SKU,
		Name:        row.Name,
		Description: row.Description,
		Category:    row.CategoryID,
		BasePrice:   row.BasePriceDecimal(),
		IsActive:    row.IsActive,
	}
}

func toProductInfos(rows []storedb.ProductRow) []ProductInfo {
	result := make([]ProductInfo, len(rows))
	for i, row := range rows {
		result[i] = toProductInfo(row)
	}
	return result
}

// Modifications is the modifications sub-service contract (spec §4.3),
// adapting the pure modifiersvc.Engine to the catalog-facing shape named
// in spec §4.1.
type Modifications interface {
	ValidateModifications(productID string, selections []modifiersvc.Selection) ValidateModificationsResult
	CalculateModificationTotal(selections []modifiersvc.Selection) decimal.Decimal
}

// ValidateModificationsResult is modifications.validateModifications's
// return shape (spec §4.3).
type ValidateModificationsResult struct {
	IsValid         bool
	TotalExtraPrice decimal.Decimal
	ErrorMessage    string
}

// NewModifications adapts a modifier Engine (already loaded from a store
// database via storedb.LoadModifierGraph) to the Modifications contract.
func NewModifications(engine modifiersvc.Engine) Modifications {
	return &modificationsAdapter{engine: engine}
}

type modificationsAdapter struct {
	engine modifiersvc.Engine
}

func (m *modificationsAdapter) ValidateModifications(productID string, selections []modifiersvc.Selection) ValidateModificationsResult {
	result := m.engine.Validate(productID, selections)
	return ValidateModificationsResult{
		IsValid:         result.IsValid,
		TotalExtraPrice: result.TotalExtraPrice,
		ErrorMessage:    result.ErrorMessage,
	}
}

func (m *modificationsAdapter) CalculateModificationTotal(selections []modifiersvc.Selection) decimal.Decimal {
	return m.engine.CalculateTotal(selections)
}

// CurrencyFormatter is the currencyFormatter sub-service contract (spec
// §4.3). The kernel never touches user-facing text itself (spec §9
// design note) — every store supplies its own formatting rules.
type CurrencyFormatter interface {
	FormatCurrency(amount decimal.Decimal, currency, culture string) string
	GetCurrencySymbol(currency string) string
	GetDecimalPlaces(currency string) int
}

// CurrencyRule is one store-declared currency's formatting metadata.
type CurrencyRule struct {
	Symbol        string
	DecimalPlaces int
	SymbolLeading bool
}

// NewTableCurrencyFormatter builds a CurrencyFormatter over a small,
// store-declared table of per-currency rules. Culture-specific separator
// conventions (thousands/decimal marks) are intentionally not modeled —
// spec §1 names "locale-specific currency formatting" as delegated, and
// this reference binding is the delegate, not the kernel.
func NewTableCurrencyFormatter(rules map[string]CurrencyRule) CurrencyFormatter {
	normalized := make(map[string]CurrencyRule, len(rules))
	for code, rule := range rules {
		normalized[strings.ToUpper(code)] = rule
	}
	return &tableCurrencyFormatter{rules: normalized}
}

type tableCurrencyFormatter struct {
	rules map[string]CurrencyRule
}

func (f *tableCurrencyFormatter) FormatCurrency(amount decimal.Decimal, currency, _ string) string {
	rule, ok := f.rules[strings.ToUpper(currency)]
	if !ok {
		return amount.StringFixed(2) + " " + currency
	}
	rounded := amount.Round(int32(rule.DecimalPlaces))
	if rule.SymbolLeading {
		return rule.Symbol + rounded.StringFixed(int32(rule.DecimalPlaces))
	}
	return rounded.StringFixed(int32(rule.DecimalPlaces)) + rule.Symbol
}

func (f *tableCurrencyFormatter) GetCurrencySymbol(currency string) string {
	rule, ok := f.rules[strings.ToUpper(currency)]
	if !ok {
		return currency
	}
	return rule.Symbol
}

func (f *tableCurrencyFormatter) GetDecimalPlaces(currency string) int {
	rule, ok := f.rules[strings.ToUpper(currency)]
	if !ok {
		return 2
	}
	return rule.DecimalPlaces
}

// DefaultCurrencyRules is a small reference table covering the currencies
// exercised by this repo's fixtures and tests.
func DefaultCurrencyRules() map[string]CurrencyRule {
	return map[string]CurrencyRule{
		"USD": {Symbol: "$", DecimalPlaces: 2, SymbolLeading: true},
		"EUR": {Symbol: "€", DecimalPlaces: 2, SymbolLeading: false},
		"GBP": {Symbol: "£", DecimalPlaces: 2, SymbolLeading: true},
		"JPY": {Symbol: "¥", DecimalPlaces: 0, SymbolLeading: true},
	}
}

// sortByDisplayName orders infos by Name. Nothing in this package calls
// it: SearchProducts takes its order from the query's ORDER BY name, and
// GetPopularItems keeps the store-declared popularSKUs order.
func sortByDisplayName(infos []ProductInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
}
