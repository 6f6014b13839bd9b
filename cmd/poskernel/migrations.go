package main

import "poskernel/pkg/storedb"

// baselineSchema is the reference migration script list this host applies
// to a fresh store database: it creates the §6 catalog schema contract in
// one script. A store with richer fixtures supplies its own longer
// Info.Scripts list — the CLI's job is only to demonstrate the runner
// end-to-end (SPEC_FULL §12).
func baselineSchema(storeName string) storedb.Info {
	return storedb.Info{
		StoreName:     storeName,
		TargetVersion: 1,
		Scripts: []storedb.MigrationScript{
			{
				Version: 1,
				Name:    "001_baseline_catalog_schema",
				SQL: `
CREATE TABLE IF NOT EXISTS products (
	sku TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	category_id TEXT,
	base_price INTEGER NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS product_modifications (
	modification_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	modification_type TEXT,
	price_adjustment_type TEXT NOT NULL,
	base_price_cents INTEGER NOT NULL DEFAULT 0,
	is_automatic BOOLEAN NOT NULL DEFAULT 0,
	display_order INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS product_modifier_applicability (
	sku TEXT NOT NULL,
	modification_id TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	PRIMARY KEY (sku, modification_id)
);
CREATE TABLE IF NOT EXISTS modification_groups (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	selection_type TEXT NOT NULL,
	is_required INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS modification_group_members (
	modification_id TEXT NOT NULL,
	group_code TEXT NOT NULL,
	PRIMARY KEY (modification_id, group_code)
);
CREATE TABLE IF NOT EXISTS modification_implications (
	source_modification_id TEXT NOT NULL,
	implied_modification_id TEXT NOT NULL,
	PRIMARY KEY (source_modification_id, implied_modification_id)
);
CREATE TABLE IF NOT EXISTS modification_incompatibilities (
	modification_id TEXT NOT NULL,
	incompatible_modification_id TEXT NOT NULL,
	PRIMARY KEY (modification_id, incompatible_modification_id)
);
CREATE TABLE IF NOT EXISTS modification_group_incompatibilities (
	modification_id TEXT NOT NULL,
	incompatible_group_code TEXT NOT NULL,
	PRIMARY KEY (modification_id, incompatible_group_code)
);
`,
			},
		},
	}
}
