// Package docstore keeps the documents officers attach to profile records.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"karmasri/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, d models.Document) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO documents (id, officer_id, file_name, content_type, size)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.OfficerID, d.FileName, d.ContentType, d.Size)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.Document, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, officer_id, file_name, content_type, size, created_at
		FROM documents
		WHERE id = ?
	`, id)

	var d models.Document
	if err := row.Scan(&d.ID, &d.OfficerID, &d.FileName, &d.ContentType, &d.Size, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
