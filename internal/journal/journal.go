// Package journal keeps a local sqlite record of every change Doorhole
// writes to a requirements tree.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Op string

const (
	OpSet    Op = "set"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
)

// Entry is one recorded change.
type Entry struct {
	ID       string    `json:"id" yaml:"id"`
	Seq      int64     `json:"seq" yaml:"seq"`
	Root     string    `json:"root" yaml:"root"`
	Document string    `json:"document" yaml:"document"`
	UID      string    `json:"uid" yaml:"uid"`
	Op       Op        `json:"op" yaml:"op"`
	Attr     string    `json:"attr,omitempty" yaml:"attr,omitempty"`
	Old      any       `json:"old,omitempty" yaml:"old,omitempty"`
	New      any       `json:"new,omitempty" yaml:"new,omitempty"`
	At       time.Time `json:"at" yaml:"at"`
}

// Journal is safe to share; database/sql serializes access.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (and creates) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: %s: %w", p, err)
		}
	}
	j := &Journal{db: db, path: path}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			root TEXT NOT NULL,
			document TEXT NOT NULL,
			uid TEXT NOT NULL,
			op TEXT NOT NULL,
			attr TEXT NOT NULL,
			old_json TEXT,
			new_json TEXT,
			at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_uid ON entries(root, uid, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := j.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Path() string { return j.path }

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends e. ID, Seq and At are assigned here when empty.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if j == nil {
		return e, nil
	}
	if strings.TrimSpace(e.UID) == "" {
		return e, errors.New("journal: missing uid")
	}
	if e.Op == "" {
		return e, errors.New("journal: missing op")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	oldJSON, err := marshalValue(e.Old)
	if err != nil {
		return e, err
	}
	newJSON, err := marshalValue(e.New)
	if err != nil {
		return e, err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer func() { _ = tx.Rollback() }()

	// Per-item sequence.
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE root = ? AND uid = ?`,
		e.Root, e.UID,
	).Scan(&e.Seq); err != nil {
		return e, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries(id, seq, root, document, uid, op, attr, old_json, new_json, at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Seq, e.Root, e.Document, e.UID, string(e.Op), e.Attr, oldJSON, newJSON, e.At.UnixMilli(),
	); err != nil {
		return e, err
	}
	if err := tx.Commit(); err != nil {
		return e, err
	}
	return e, nil
}

// List returns entries for root, newest first. An empty uid lists every
// item; limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, root, uid string, limit int) ([]Entry, error) {
	q := `SELECT id, seq, root, document, uid, op, attr, old_json, new_json, at_unixms
		FROM entries WHERE root = ?`
	args := []any{root}
	if strings.TrimSpace(uid) != "" {
		q += ` AND uid = ?`
		args = append(args, uid)
	}
	q += ` ORDER BY at_unixms DESC, seq DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			op       string
			oldJSON  sql.NullString
			newJSON  sql.NullString
			atUnixMs int64
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.Root, &e.Document, &e.UID, &op, &e.Attr, &oldJSON, &newJSON, &atUnixMs); err != nil {
			return nil, err
		}
		e.Op = Op(op)
		e.At = time.UnixMilli(atUnixMs).UTC()
		e.Old = unmarshalValue(oldJSON)
		e.New = unmarshalValue(newJSON)
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalValue(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("journal: marshal value: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalValue(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return s.String
	}
	return v
}
