package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"karmasri/pkg/models"
)

type Account struct {
	ID           string
	PEN          string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

func (a Account) Public() models.Officer {
	return models.Officer{
		ID:        a.ID,
		PEN:       a.PEN,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const accountColumns = `id, pen, name, email, password_hash, role, token_version, created_at`

func (r *Repo) CreateAccount(ctx context.Context, a Account) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO officers (id, pen, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.PEN, a.Name, a.Email, a.PasswordHash, a.Role)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// UpsertAccount creates the account or refreshes name, email, role and
// password of the account with the same PEN.
func (r *Repo) UpsertAccount(ctx context.Context, a Account) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO officers (id, pen, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pen) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			password_hash = excluded.password_hash,
			role = excluded.role
	`, a.ID, a.PEN, a.Name, a.Email, a.PasswordHash, a.Role)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return r.getOne(ctx, "get by email", `WHERE LOWER(email) = ?`, email)
}

func (r *Repo) GetByPEN(ctx context.Context, pen string) (*Account, error) {
	return r.getOne(ctx, "get by pen", `WHERE pen = ?`, strings.TrimSpace(pen))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.getOne(ctx, "get by id", `WHERE id = ?`, id)
}

func (r *Repo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+accountColumns+` FROM officers ORDER BY pen`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.PEN, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.TokenVersion, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows accounts: %w", err)
	}
	return out, nil
}

func (r *Repo) getOne(ctx context.Context, op, where string, arg any) (*Account, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM officers `+where, arg)

	var a Account
	if err := row.Scan(&a.ID, &a.PEN, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.TokenVersion, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM officers
		WHERE id = ?
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("get token version: account %s not found", id)
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE officers
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: account not found")
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE officers
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: account not found")
	}
	return nil
}
