package storedb

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	modifiermodel "poskernel/pkg/modifier/domain/model"
)

// ProductRow mirrors the products table (spec §6).
type ProductRow struct {
	SKU         string `db:"sku"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CategoryID  string `db:"category_id"`
	BasePrice   int64  `db:"base_price"`
	IsActive    bool   `db:"is_active"`
}

// BasePriceDecimal converts the stored cents integer into a decimal major
// unit amount. The §6 contract allows base_price to be stored as
// REAL/INT cents; this reference binding always reads it as integer cents,
// matching the product_modifications.base_price_cents column naming.
func (p ProductRow) BasePriceDecimal() decimal.Decimal {
	return decimal.New(p.BasePrice, -2)
}

// LoadProducts returns every row in products, active or not — filtering
// by IsActive is a catalog-layer (pkg/storeext) concern, not storedb's.
func LoadProducts(db *sqlx.DB) ([]ProductRow, error) {
	var rows []ProductRow
	if err := db.Select(&rows, `SELECT sku, name, description, category_id, base_price, is_active FROM products`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading products")
	}
	return rows, nil
}

// FindProduct returns the single product row for sku, or sql.ErrNoRows
// wrapped with context when absent.
func FindProduct(db *sqlx.DB, sku string) (*ProductRow, error) {
	var row ProductRow
	err := db.Get(&row, `SELECT sku, name, description, category_id, base_price, is_active FROM products WHERE sku = ?`, sku)
	if err != nil {
		return nil, errors.Wrapf(err, "storedb: loading product %q", sku)
	}
	return &row, nil
}

// SearchProducts matches name/description against term (case-insensitive
// substring), returning up to maxResults active rows ordered by name —
// backing catalog.searchProducts (spec §4.3).
func SearchProducts(db *sqlx.DB, term string, maxResults int) ([]ProductRow, error) {
	var rows []ProductRow
	pattern := "%" + strings.ToLower(term) + "%"
	err := db.Select(&rows,
		`SELECT sku, name, description, category_id, base_price, is_active FROM products
		 WHERE is_active = 1 AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)
		 ORDER BY name LIMIT ?`,
		pattern, pattern, maxResults)
	if err != nil {
		return nil, errors.Wrapf(err, "storedb: searching products for %q", term)
	}
	return rows, nil
}

// modificationRow mirrors product_modifications (spec §6).
type modificationRow struct {
	ID                    string `db:"modification_id"`
	Name                  string `db:"name"`
	PriceAdjustmentType   string `db:"price_adjustment_type"`
	BasePriceCents        int64  `db:"base_price_cents"`
	IsAutomatic           bool   `db:"is_automatic"`
	DisplayOrder          int    `db:"display_order"`
	IsActive              bool   `db:"is_active"`
}

type groupRow struct {
	Code          string `db:"code"`
	Name          string `db:"name"`
	SelectionType string `db:"selection_type"`
	IsRequired    int    `db:"is_required"`
}

type groupMemberRow struct {
	ModificationID string `db:"modification_id"`
	GroupCode      string `db:"group_code"`
}

type applicabilityRow struct {
	SKU            string `db:"sku"`
	ModificationID string `db:"modification_id"`
	IsActive       bool   `db:"is_active"`
}

type implicationRow struct {
	SourceID string `db:"source_modification_id"`
	ImpliedID string `db:"implied_modification_id"`
}

type incompatibilityRow struct {
	ModificationID             string `db:"modification_id"`
	IncompatibleModificationID string `db:"incompatible_modification_id"`
}

type groupIncompatibilityRow struct {
	ModificationID          string `db:"modification_id"`
	IncompatibleGroupCode   string `db:"incompatible_group_code"`
}

// LoadModifierGraph reads the full modifier relation set from a store
// database — definitions, group memberships, applicability,
// implications, incompatibilities, group incompatibilities — into the
// immutable in-memory Graph the Modifier Rule Engine validates against
// (spec §3, §4.3, §5: "loads its graph once at store activation"). The
// three implication/incompatibility/group-incompatibility tables are
// optional per §6; their absence is not an error.
func LoadModifierGraph(db *sqlx.DB) (*modifiermodel.Graph, error) {
	graph := &modifiermodel.Graph{
		Modifiers:                 make(map[string]modifiermodel.Modifier),
		Groups:                    make(map[string]modifiermodel.Group),
		Applicability:             make(map[string]map[string]bool),
		Implications:              make(map[string][]string),
		ModifierIncompatibilities: make(map[string]map[string]bool),
		GroupIncompatibilities:    make(map[string]map[string]bool),
	}

	var groups []groupRow
	if err := db.Select(&groups, `SELECT code, name, selection_type, is_required FROM modification_groups`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading modification_groups")
	}
	for _, g := range groups {
		code := strings.ToLower(g.Code)
		graph.Groups[code] = modifiermodel.Group{
			Code:         g.Code,
			Name:         g.Name,
			SingleSelect: strings.EqualFold(g.SelectionType, "single"),
			Required:     g.IsRequired != 0,
		}
	}

	var members []groupMemberRow
	if err := db.Select(&members, `SELECT modification_id, group_code FROM modification_group_members`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading modification_group_members")
	}
	groupByModifier := make(map[string]string, len(members))
	for _, m := range members {
		groupByModifier[strings.ToLower(m.ModificationID)] = m.GroupCode
	}

	var mods []modificationRow
	if err := db.Select(&mods, `SELECT modification_id, name, price_adjustment_type, base_price_cents, is_automatic, display_order, is_active FROM product_modifications`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading product_modifications")
	}
	for _, m := range mods {
		id := strings.ToLower(m.ID)
		kind := modifiermodel.Free
		if strings.EqualFold(m.PriceAdjustmentType, "SURCHARGE") {
			kind = modifiermodel.Surcharge
		}
		graph.Modifiers[id] = modifiermodel.Modifier{
			ID:             m.ID,
			Name:           m.Name,
			GroupCode:      groupByModifier[id],
			AdjustmentKind: kind,
			Value:          decimal.New(m.BasePriceCents, -2),
			IsAutomatic:    m.IsAutomatic,
			DisplayOrder:   m.DisplayOrder,
		}
	}

	var applic []applicabilityRow
	if err := db.Select(&applic, `SELECT sku, modification_id, is_active FROM product_modifier_applicability`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading product_modifier_applicability")
	}
	for _, a := range applic {
		if !a.IsActive {
			continue
		}
		sku := strings.ToLower(a.SKU)
		if graph.Applicability[sku] == nil {
			graph.Applicability[sku] = make(map[string]bool)
		}
		graph.Applicability[sku][strings.ToLower(a.ModificationID)] = true
	}

	var implications []implicationRow
	if err := db.Select(&implications, `SELECT source_modification_id, implied_modification_id FROM modification_implications`); err != nil {
		if !isMissingTable(err) {
			return nil, errors.Wrap(err, "storedb: loading modification_implications")
		}
	}
	for _, i := range implications {
		src := strings.ToLower(i.SourceID)
		graph.Implications[src] = append(graph.Implications[src], strings.ToLower(i.ImpliedID))
	}

	var incompats []incompatibilityRow
	if err := db.Select(&incompats, `SELECT modification_id, incompatible_modification_id FROM modification_incompatibilities`); err != nil {
		if !isMissingTable(err) {
			return nil, errors.Wrap(err, "storedb: loading modification_incompatibilities")
		}
	}
	for _, c := range incompats {
		addSymmetric(graph.ModifierIncompatibilities, strings.ToLower(c.ModificationID), strings.ToLower(c.IncompatibleModificationID))
	}

	var groupIncompats []groupIncompatibilityRow
	if err := db.Select(&groupIncompats, `SELECT modification_id, incompatible_group_code FROM modification_group_incompatibilities`); err != nil {
		if !isMissingTable(err) {
			return nil, errors.Wrap(err, "storedb: loading modification_group_incompatibilities")
		}
	}
	for _, c := range groupIncompats {
		id := strings.ToLower(c.ModificationID)
		if graph.GroupIncompatibilities[id] == nil {
			graph.GroupIncompatibilities[id] = make(map[string]bool)
		}
		graph.GroupIncompatibilities[id][strings.ToLower(c.IncompatibleGroupCode)] = true
	}

	return graph, nil
}

// addSymmetric records a<->b in both directions: spec §4.3 step 4 checks
// modifierIncompatibilities pairwise without a declared direction, so a
// single authored row covers both orderings of a selection.
func addSymmetric(set map[string]map[string]bool, a, b string) {
	if set[a] == nil {
		set[a] = make(map[string]bool)
	}
	set[a][b] = true
	if set[b] == nil {
		set[b] = make(map[string]bool)
	}
	set[b][a] = true
}

// isMissingTable reports whether err looks like "no such table", the
// SQLite/MySQL error for an absent optional relation (spec §6: the
// implication/incompatibility tables are explicitly optional).
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "doesn't exist")
}
