// Package store persists scan inventories to a local SQLite database, so
// a caller can later diff against a prior run without having kept the
// serialized JSON around. This is a DOMAIN STACK addition beyond
// spec.md's core scope: the spec defines the diff engine's *input*
// shape but is silent on where those two documents come from between
// runs (see SPEC_FULL.md's domain-stack section).
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3"
	_ "modernc.org/sqlite"

	"github.com/Lab700xOrg/aisbom"
)

//go:embed schema.sql
var schema string

// Store is a handle to a local scan-history database. The zero value is
// not usable; construct one with Open.
type Store struct {
	db      *sql.DB
	builder goqu.DialectWrapper
}

// Open opens (creating if necessary) the named SQLite database and
// ensures its schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"journal_mode(WAL)", "foreign_keys(1)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, &aisbom.Error{Op: "store.Open", Kind: aisbom.ErrIO, Inner: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &aisbom.Error{Op: "store.Open", Kind: aisbom.ErrIO, Inner: err}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &aisbom.Error{Op: "store.Open", Kind: aisbom.ErrIO, Message: "applying schema", Inner: err}
	}
	return &Store{db: db, builder: goqu.Dialect("sqlite3")}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Run is one recorded scan: a root, a timestamp, and the inventory it
// produced.
type Run struct {
	ID        int64  `db:"id"`
	Root      string `db:"root"`
	RunAt     int64  `db:"run_at"` // unix seconds, caller-supplied
	Inventory string `db:"inventory"`
}

// Record inserts a new run for root, stamped at runAt (caller-supplied;
// this package never calls time.Now itself), and returns its assigned ID.
func (s *Store) Record(ctx context.Context, root string, runAt int64, inv *aisbom.Inventory) (int64, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return 0, &aisbom.Error{Op: "store.Record", Kind: aisbom.ErrInvalid, Inner: err}
	}
	insert := s.builder.Insert("runs").Rows(goqu.Record{
		"root":      root,
		"run_at":    runAt,
		"inventory": string(data),
	})
	q, args, err := insert.ToSQL()
	if err != nil {
		return 0, &aisbom.Error{Op: "store.Record", Kind: aisbom.ErrInvalid, Inner: err}
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, &aisbom.Error{Op: "store.Record", Kind: aisbom.ErrIO, Inner: err}
	}
	return res.LastInsertId()
}

// Latest returns the most recently recorded inventory for root, or
// (nil, nil) if none exists.
func (s *Store) Latest(ctx context.Context, root string) (*aisbom.Inventory, error) {
	sel := s.builder.From("runs").
		Select("inventory").
		Where(goqu.Ex{"root": root}).
		Order(goqu.I("run_at").Desc()).
		Limit(1)
	q, args, err := sel.ToSQL()
	if err != nil {
		return nil, &aisbom.Error{Op: "store.Latest", Kind: aisbom.ErrInvalid, Inner: err}
	}
	var raw string
	switch err := s.db.QueryRowContext(ctx, q, args...).Scan(&raw); {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, &aisbom.Error{Op: "store.Latest", Kind: aisbom.ErrIO, Inner: err}
	}
	var inv aisbom.Inventory
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return nil, &aisbom.Error{Op: "store.Latest", Kind: aisbom.ErrInvalid, Message: fmt.Sprintf("decoding run for %s", root), Inner: err}
	}
	return &inv, nil
}

// History returns up to limit most-recent Run rows for root, newest
// first, without decoding their Inventory payloads.
func (s *Store) History(ctx context.Context, root string, limit uint) ([]Run, error) {
	sel := s.builder.From("runs").
		Select("id", "root", "run_at", "inventory").
		Where(goqu.Ex{"root": root}).
		Order(goqu.I("run_at").Desc()).
		Limit(limit)
	q, args, err := sel.ToSQL()
	if err != nil {
		return nil, &aisbom.Error{Op: "store.History", Kind: aisbom.ErrInvalid, Inner: err}
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &aisbom.Error{Op: "store.History", Kind: aisbom.ErrIO, Inner: err}
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Root, &r.RunAt, &r.Inventory); err != nil {
			return nil, &aisbom.Error{Op: "store.History", Kind: aisbom.ErrIO, Inner: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &aisbom.Error{Op: "store.History", Kind: aisbom.ErrIO, Inner: err}
	}
	return out, nil
}
