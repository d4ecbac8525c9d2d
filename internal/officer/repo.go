package officer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"karmasri/internal/merge"
	"karmasri/internal/provenance"
)

// Write is one field update: the value and the tag it is stored under.
// A nil Value deletes the field.
type Write struct {
	Value any
	Tag   provenance.Tag
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// List returns the officer's records of entity in insertion order.
func (r *Repo) List(ctx context.Context, officerID, entity string) ([]merge.LocalRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT rec.id, f.field, f.value, f.source_tag
		FROM officer_records rec
		LEFT JOIN officer_record_fields f ON f.record_id = rec.id
		WHERE rec.officer_id = ? AND rec.entity = ?
		ORDER BY rec.id, f.field
	`, officerID, entity)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", entity, err)
	}
	defer rows.Close()

	var (
		out []merge.LocalRecord
		cur *merge.LocalRecord
	)
	for rows.Next() {
		var (
			id                int64
			field, value, tag sql.NullString
		)
		if err := rows.Scan(&id, &field, &value, &tag); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", entity, err)
		}
		sid := strconv.FormatInt(id, 10)
		if cur == nil || cur.ID != sid {
			out = append(out, merge.LocalRecord{ID: sid, Fields: map[provenance.Tag]merge.Values{}})
			cur = &out[len(out)-1]
		}
		if !field.Valid {
			continue
		}
		if err := put(cur, field.String, value.String, tag.String); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s records: %w", entity, err)
	}
	return out, nil
}

// Get returns nil, nil when the record does not exist or belongs to
// another officer or entity.
func (r *Repo) Get(ctx context.Context, officerID, entity, id string) (*merge.LocalRecord, error) {
	return get(ctx, r.DB, officerID, entity, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, officerID, entity, id string) (*merge.LocalRecord, error) {
	var found int64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM officer_records
		WHERE id = ? AND officer_id = ? AND entity = ?
	`, id, officerID, entity).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s record: %w", entity, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT field, value, source_tag
		FROM officer_record_fields
		WHERE record_id = ?
		ORDER BY field
	`, found)
	if err != nil {
		return nil, fmt.Errorf("get %s fields: %w", entity, err)
	}
	defer rows.Close()

	rec := &merge.LocalRecord{ID: strconv.FormatInt(found, 10), Fields: map[provenance.Tag]merge.Values{}}
	for rows.Next() {
		var field, value, tag string
		if err := rows.Scan(&field, &value, &tag); err != nil {
			return nil, fmt.Errorf("scan %s field: %w", entity, err)
		}
		if err := put(rec, field, value, tag); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s fields: %w", entity, err)
	}
	return rec, nil
}

func put(rec *merge.LocalRecord, field, value, tag string) error {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return fmt.Errorf("decode field %s of record %s: %w", field, rec.ID, err)
	}
	t := provenance.ParseTag(tag)
	if rec.Fields[t] == nil {
		rec.Fields[t] = merge.Values{}
	}
	rec.Fields[t][field] = v
	return nil
}

// Create inserts a record with the given fields and returns it as stored.
func (r *Repo) Create(ctx context.Context, officerID, entity string, writes map[string]Write) (*merge.LocalRecord, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create %s: %w", entity, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO officer_records (officer_id, entity) VALUES (?, ?)
	`, officerID, entity)
	if err != nil {
		return nil, fmt.Errorf("create %s record: %w", entity, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create %s record id: %w", entity, err)
	}

	if err := writeFields(ctx, tx, id, writes); err != nil {
		return nil, err
	}
	rec, err := get(ctx, tx, officerID, entity, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create %s: %w", entity, err)
	}
	return rec, nil
}

// Update applies writes to an existing record. Fields not named keep their
// value and tag. Returns nil, nil when the record is not the officer's.
func (r *Repo) Update(ctx context.Context, officerID, entity, id string, writes map[string]Write) (*merge.LocalRecord, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", entity, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE officer_records SET updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND officer_id = ? AND entity = ?
	`, id, officerID, entity)
	if err != nil {
		return nil, fmt.Errorf("update %s record: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	rid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("update %s record: bad id %q", entity, id)
	}
	if err := writeFields(ctx, tx, rid, writes); err != nil {
		return nil, err
	}
	rec, err := get(ctx, tx, officerID, entity, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", entity, err)
	}
	return rec, nil
}

func writeFields(ctx context.Context, tx *sql.Tx, recordID int64, writes map[string]Write) error {
	for field, w := range writes {
		if w.Value == nil {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM officer_record_fields WHERE record_id = ? AND field = ?
			`, recordID, field); err != nil {
				return fmt.Errorf("clear field %s: %w", field, err)
			}
			continue
		}

		b, err := json.Marshal(w.Value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", field, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO officer_record_fields (record_id, field, value, source_tag, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(record_id, field) DO UPDATE SET
				value = excluded.value,
				source_tag = excluded.source_tag,
				updated_at = CURRENT_TIMESTAMP
		`, recordID, field, string(b), string(w.Tag)); err != nil {
			return fmt.Errorf("write field %s: %w", field, err)
		}
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, officerID, entity, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM officer_records
		WHERE id = ? AND officer_id = ? AND entity = ?
	`, id, officerID, entity)
	if err != nil {
		return false, fmt.Errorf("delete %s record: %w", entity, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Officers lists the ids of officers holding at least one record.
func (r *Repo) Officers(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT officer_id FROM officer_records ORDER BY officer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list record officers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record officer: %w", err)
		}
		out = append(out, strings.TrimSpace(id))
	}
	return out, rows.Err()
}
