package storedb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"poskernel/pkg/errs"
)

// MigrationScript is one SQL text unit with a monotonic integer version
// (spec §4.5, GLOSSARY). ChecksumOverride, when non-empty, is recorded and
// compared in place of the recomputed SHA-256 — the reference host never
// sets it; it exists so tests can pin a checksum value across runs without
// depending on exact SQL text.
type MigrationScript struct {
	Version          int
	Name             string
	SQL              string
	ChecksumOverride string
}

func (s MigrationScript) checksum() string {
	if s.ChecksumOverride != "" {
		return s.ChecksumOverride
	}
	sum := sha256.Sum256([]byte(s.SQL))
	return hex.EncodeToString(sum[:])
}

// Info is the migration-info contract a store supplies to the runner:
// storeName, targetVersion, and the ordered script list (spec §4.5).
type Info struct {
	StoreName     string
	TargetVersion int
	Scripts       []MigrationScript
}

// schemaVersionRow mirrors the schema_version table (spec §3
// SchemaVersionRecord, §6).
type schemaVersionRow struct {
	Version     int       `db:"version"`
	ScriptName  string    `db:"script_name"`
	AppliedUtc  string    `db:"applied_utc"` // RFC 3339 text, as written by applyScript
	Checksum    string    `db:"checksum"`
}

// Runner is the Schema Migration Runner contract (spec §4.5).
type Runner interface {
	Run(ctx context.Context, dbPath string, info Info) error
}

// NewRunner constructs a Runner that opens dbPath with driver for the
// duration of one run, per spec §5: "accessed through a single
// connection... scripts run inside the connection's serial transaction."
func NewRunner(driver Driver) Runner {
	return &runner{driver: driver}
}

type runner struct {
	driver Driver
}

// Run implements the §4.5 algorithm: fail-fast on a missing db file, gap,
// checksum mismatch, or unknown applied version; back up before the first
// pending script; apply each pending script inside its own transaction.
func (r *runner) Run(ctx context.Context, dbPath string, info Info) error {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("storedb: database %q does not exist", dbPath)
		}
		return errors.Wrapf(err, "storedb: statting database %q", dbPath)
	}

	db, err := Open(r.driver, dbPath)
	if err != nil {
		return errors.Wrap(err, "storedb: opening database for migration")
	}
	defer db.Close()

	if err := ensureSchemaVersionTable(db); err != nil {
		return err
	}

	scriptsByVersion, err := orderedContiguousScripts(info.Scripts)
	if err != nil {
		return err
	}

	applied, err := loadAppliedVersions(db)
	if err != nil {
		return err
	}

	maxCodeVersion := len(scriptsByVersion) - 1 // [0] is unused
	for _, row := range applied {
		if row.Version > maxCodeVersion {
			return errs.New(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: store %q has applied schema version %d but this extension only knows versions up to %d (extension outdated)",
				info.StoreName, row.Version, maxCodeVersion))
		}
		script := scriptsByVersion[row.Version]
		if script.checksum() != row.Checksum {
			return errs.New(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: store %q schema version %d (%s) checksum mismatch — potential tampering",
				info.StoreName, row.Version, script.Name))
		}
	}

	pending := scriptsByVersion[len(applied)+1:]
	if len(pending) == 0 {
		log.WithFields(log.Fields{"store": info.StoreName, "version": maxCodeVersion}).
			Debug("storedb: schema already at target version, nothing to do")
		return nil
	}

	backupPath, err := backupDatabase(dbPath)
	if err != nil {
		return errors.Wrap(err, "storedb: backing up database before migration")
	}
	log.WithFields(log.Fields{"store": info.StoreName, "backup": backupPath}).
		Info("storedb: backed up database before applying pending scripts")

	for _, script := range pending {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: migration cancelled before script %d (%s), schema left partially applied", script.Version, script.Name), err)
		}
		if err := applyScript(ctx, db, script); err != nil {
			return errs.Wrap(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: applying schema script %d (%s)", script.Version, script.Name), err)
		}
		log.WithFields(log.Fields{"store": info.StoreName, "version": script.Version, "script": script.Name}).
			Info("storedb: applied schema script")
	}

	return nil
}

func ensureSchemaVersionTable(db *sqlx.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		script_name TEXT NOT NULL,
		applied_utc TEXT NOT NULL,
		checksum TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return errors.Wrap(err, "storedb: ensuring schema_version table")
	}
	return nil
}

// orderedContiguousScripts validates the code-side script list is
// contiguous starting at version 1 (spec §4.5 step 3) and returns a
// 1-indexed slice where index i holds the script of version i.
func orderedContiguousScripts(scripts []MigrationScript) ([]MigrationScript, error) {
	sorted := make([]MigrationScript, len(scripts))
	copy(sorted, scripts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	ordered := make([]MigrationScript, len(sorted)+1) // 1-indexed; [0] unused
	for i, script := range sorted {
		expected := i + 1
		if script.Version != expected {
			return nil, errs.New(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: migration script list has a gap — expected version %d, found %d (%s)",
				expected, script.Version, script.Name))
		}
		ordered[expected] = script
	}
	return ordered, nil
}

func loadAppliedVersions(db *sqlx.DB) ([]schemaVersionRow, error) {
	var rows []schemaVersionRow
	if err := db.Select(&rows, `SELECT version, script_name, applied_utc, checksum FROM schema_version ORDER BY version ASC`); err != nil {
		return nil, errors.Wrap(err, "storedb: loading applied schema_version rows")
	}
	for i, row := range rows {
		expected := i + 1
		if row.Version != expected {
			return nil, errs.New(errs.SchemaIntegrityViolation, fmt.Sprintf(
				"storedb: applied schema_version rows have a gap at position %d (found version %d)", expected, row.Version))
		}
	}
	return rows, nil
}

// applyScript runs one script's SQL and its schema_version insert inside a
// single transaction (spec §4.5 step 6). Cancellation mid-script rolls
// back only this script's transaction (spec §5); prior scripts' own
// already-committed transactions are untouched.
func applyScript(ctx context.Context, db *sqlx.DB, script MigrationScript) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if err := execScript(ctx, tx, script.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, script_name, applied_utc, checksum) VALUES (?, ?, ?, ?)`,
		script.Version, script.Name, time.Now().UTC().Format(time.RFC3339Nano), script.checksum())
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "recording schema_version row")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// execScript runs script SQL as a single statement. SQLite's driver
// accepts multi-statement strings via Exec; callers authoring multi-DDL
// scripts are expected to write SQLite-compatible batches (spec §6: "a
// SQLite-compatible schema contract").
func execScript(ctx context.Context, tx *sqlx.Tx, sqlText string) error {
	_, err := tx.ExecContext(ctx, sqlText)
	return err
}

// backupDatabase copies dbPath to dbPath + ".bak-<UTC timestamp>" before
// the first pending script runs (spec §4.5 step 5, SPEC_FULL §12).
func backupDatabase(dbPath string) (string, error) {
	backupPath := fmt.Sprintf("%s.bak-%s", dbPath, time.Now().UTC().Format("20060102T150405.000000000Z"))

	src, err := os.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return backupPath, nil
}
