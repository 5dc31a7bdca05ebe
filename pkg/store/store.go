// Package store is the local, versioned record store. Each collection keeps whole records as JSON
// payloads keyed by id, with expression indexes on the fields declared in the schema.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrNotIndexed = errors.New("field is not indexed")
	ErrStorage    = errors.New("storage failure")
	ErrMissingID  = errors.New("record has no id")
	ErrPrimaryKey = errors.New("primary key cannot be changed")
)

// Record is anything stored in a collection; RecordID must match the "id" field of its JSON form.
type Record interface {
	RecordID() string
}

// Fields is a shallow patch of top-level record fields. A nil value removes the field.
type Fields map[string]any

type Store struct {
	db *sql.DB
}

// New wraps an already migrated database, see database.Open.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type Table[T Record] struct {
	db         *sql.DB
	collection Collection
}

// NewTable binds the record type T to collection c. Unknown collections are a programming error.
func NewTable[T Record](s *Store, c Collection) *Table[T] {
	if !isKnown(c) {
		panic(fmt.Sprintf("store: unknown collection %q", c))
	}
	return &Table[T]{db: s.db, collection: c}
}

func (t *Table[T]) Collection() Collection {
	return t.collection
}

// Get returns the record stored under id, or nil when there is none.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	var payload string
	err := t.db.QueryRowContext(ctx, "SELECT payload FROM "+string(t.collection)+" WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, t.storageErr("get", err)
	}

	record, err := t.decode(payload)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Put inserts or replaces a single record.
func (t *Table[T]) Put(ctx context.Context, record T) error {
	return t.BulkUpsert(ctx, []T{record})
}

// BulkUpsert inserts or replaces whole records by id in one transaction. Replaced records keep
// their original insertion position.
func (t *Table[T]) BulkUpsert(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return t.storageErr("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+string(t.collection)+" (id, payload) VALUES (?, ?) "+
		"ON CONFLICT (id) DO UPDATE SET payload = excluded.payload")
	if err != nil {
		return t.storageErr("prepare upsert", err)
	}
	defer stmt.Close()

	for _, record := range records {
		id := record.RecordID()
		if id == "" {
			return fmt.Errorf("%s: %w", t.collection, ErrMissingID)
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", t.collection, id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(payload)); err != nil {
			return t.storageErr("upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return t.storageErr("commit upsert", err)
	}
	log.Tracef("upserted %d record(s) into %s", len(records), t.collection)
	return nil
}

// Update shallow-merges fields into the stored record. It fails with ErrNotFound when id is absent.
func (t *Table[T]) Update(ctx context.Context, id string, fields Fields) error {
	if _, ok := fields["id"]; ok {
		return fmt.Errorf("%s %s: %w", t.collection, id, ErrPrimaryKey)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return t.storageErr("begin update", err)
	}
	defer func() { _ = tx.Rollback() }()

	var payload string
	err = tx.QueryRowContext(ctx, "SELECT payload FROM "+string(t.collection)+" WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", t.collection, id, ErrNotFound)
	}
	if err != nil {
		return t.storageErr("read for update", err)
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return t.storageErr("decode for update", err)
	}
	for name, value := range fields {
		if value == nil {
			delete(doc, name)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding field %s of %s %s: %w", name, t.collection, id, err)
		}
		doc[name] = raw
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", t.collection, id, err)
	}
	var check T
	if err := json.Unmarshal(merged, &check); err != nil {
		return fmt.Errorf("updated %s %s does not fit the record type: %w", t.collection, id, err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE "+string(t.collection)+" SET payload = ? WHERE id = ?", string(merged), id); err != nil {
		return t.storageErr("update", err)
	}
	if err := tx.Commit(); err != nil {
		return t.storageErr("commit update", err)
	}
	return nil
}

// Delete removes the record stored under id. Deleting an absent id is not an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, "DELETE FROM "+string(t.collection)+" WHERE id = ?", id); err != nil {
		return t.storageErr("delete", err)
	}
	return nil
}

// DeleteWhere removes every record matching cond on an indexed field and reports how many went away.
func (t *Table[T]) DeleteWhere(ctx context.Context, field string, cond Condition) (int64, error) {
	if !isIndexed(t.collection, field) {
		return 0, fmt.Errorf("%s.%s: %w", t.collection, field, ErrNotIndexed)
	}
	where, args := cond.where(fieldExpr(field))
	result, err := t.db.ExecContext(ctx, "DELETE FROM "+string(t.collection)+" WHERE "+where, args...)
	if err != nil {
		return 0, t.storageErr("delete where", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, t.storageErr("delete where", err)
	}
	return affected, nil
}

// Query lazily yields the records whose indexed field matches cond. Rows are read while the
// sequence is consumed; stopping early releases them.
func (t *Table[T]) Query(ctx context.Context, field string, cond Condition) iter.Seq2[T, error] {
	if !isIndexed(t.collection, field) {
		return func(yield func(T, error) bool) {
			var zero T
			yield(zero, fmt.Errorf("%s.%s: %w", t.collection, field, ErrNotIndexed))
		}
	}
	expr := fieldExpr(field)
	where, args := cond.where(expr)
	return t.scan(ctx, "SELECT payload FROM "+string(t.collection)+" WHERE "+where+" ORDER BY "+cond.orderBy(expr), args...)
}

// All yields every record of the collection in insertion order.
func (t *Table[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return t.scan(ctx, "SELECT payload FROM "+string(t.collection)+" ORDER BY rowid")
}

func (t *Table[T]) scan(ctx context.Context, query string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := t.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(zero, t.storageErr("query", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var payload string
			if err := rows.Scan(&payload); err != nil {
				yield(zero, t.storageErr("scan", err))
				return
			}
			record, err := t.decode(payload)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(record, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, t.storageErr("iterate", err))
		}
	}
}

func (t *Table[T]) decode(payload string) (T, error) {
	var record T
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return record, t.storageErr("decode", err)
	}
	return record, nil
}

func (t *Table[T]) storageErr(op string, err error) error {
	err = fmt.Errorf("%w: %s %s: %w", ErrStorage, op, t.collection, err)
	log.Error(err)
	return err
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := make([]T, 0)
	for record, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
