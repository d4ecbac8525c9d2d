package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"karmasri/internal/auth"
	"karmasri/pkg/database"
	"karmasri/pkg/models"
)

func main() {
	var (
		in     = flag.String("in", "data/officers.csv", "input CSV path (pen,name,email,role,password)")
		dbPath = flag.String("db", "", "sqlite path (default ~/.karmasri/data.db)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := database.OpenMigrated(database.DefaultConfig(*dbPath))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	n, err := importOfficers(ctx, auth.NewRepo(db), f)
	if err != nil {
		log.Fatalf("import officers failed: %v", err)
	}
	log.Printf("imported %d officers from %s", n, *in)
}

// importOfficers upserts one account per row, keyed by PEN. Rows without a
// PEN or password are skipped.
func importOfficers(ctx context.Context, repo *auth.Repo, src io.Reader) (int, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	for _, col := range []string{"pen", "name", "password"} {
		if _, ok := header[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	n := 0
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if len(row) == 0 {
			continue
		}

		pen := valueAt(header, row, "pen")
		password := valueAt(header, row, "password")
		if pen == "" || password == "" {
			continue
		}

		role := strings.ToLower(valueAt(header, row, "role"))
		switch role {
		case "":
			role = models.RoleOfficer
		case models.RoleOfficer, models.RoleGAD:
		default:
			return n, fmt.Errorf("line %d: unknown role %q", line, role)
		}

		email := strings.ToLower(valueAt(header, row, "email"))
		if email == "" {
			email = strings.ToLower(pen) + "@kerala.gov.in"
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return n, fmt.Errorf("line %d: hash password: %w", line, err)
		}

		if err := repo.UpsertAccount(ctx, auth.Account{
			ID:           uuid.NewString(),
			PEN:          pen,
			Name:         valueAt(header, row, "name"),
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		}); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
