// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"karmasri/pkg/database"
)

// OpenDB returns a migrated sqlite database in a temp dir.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateOfficer inserts an account and returns its id.
func CreateOfficer(t *testing.T, db *sql.DB, pen, role, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	id := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO officers (id, pen, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, pen, "Officer "+pen, pen+"@kerala.gov.in", string(hash), role)
	require.NoError(t, err)
	return id
}
