package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"karmasri/internal/auth"
	"karmasri/internal/merge"
	"karmasri/internal/officer"
	"karmasri/internal/portal"
	"karmasri/internal/spark"
	"karmasri/pkg/database"
)

func main() {
	var (
		outDir   = flag.String("out", "data/export", "output directory, one <entity>.csv per section")
		dbPath   = flag.String("db", "", "sqlite path (default ~/.karmasri/data.db)")
		sparkURL = flag.String("spark", "", "SPARK base URL; empty exports stored records only")
		pen      = flag.String("pen", "", "export one officer only")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.OpenMigrated(database.DefaultConfig(*dbPath))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	var src officer.SparkSource
	if *sparkURL != "" {
		src = spark.NewClient(*sparkURL, 10*time.Second)
	}
	svc := officer.NewService(officer.NewRepo(db), src, nil)
	accounts := auth.NewRepo(db)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create %s: %v", *outDir, err)
	}
	today := time.Now()
	for _, name := range merge.Names() {
		path := filepath.Join(*outDir, name+".csv")
		if err := exportFile(ctx, svc, accounts, name, *pen, path, today); err != nil {
			log.Fatalf("export %s failed: %v", name, err)
		}
		log.Printf("exported %s to %s", name, path)
	}
}

func exportFile(ctx context.Context, svc *officer.Service, accounts *auth.Repo, entity, pen, path string, today time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := exportSection(ctx, svc, accounts, entity, pen, f, today); err != nil {
		return err
	}
	return f.Close()
}

// derivedColumns are the computed labels appended after the stored fields.
var derivedColumns = map[string][]string{
	merge.Training.Name:   {"status", "duration"},
	merge.Dependents.Name: {"age", "spouse_status"},
}

// exportSection writes the merged section of every officer that holds
// records (or only pen when set), one row per display record.
func exportSection(ctx context.Context, svc *officer.Service, accounts *auth.Repo, entity, pen string, out io.Writer, today time.Time) error {
	e, ok := merge.Lookup(entity)
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}
	extra := derivedColumns[entity]

	w := csv.NewWriter(out)
	header := append([]string{"pen", "record_id", "saved", "source"}, e.Fields...)
	if err := w.Write(append(header, extra...)); err != nil {
		return err
	}

	ids, err := svc.Repo.Officers(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		a, err := accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a == nil || (pen != "" && a.PEN != pen) {
			continue
		}
		recs, err := svc.Section(ctx, a.ID, a.PEN, entity)
		if err != nil {
			return fmt.Errorf("section for %s: %w", a.PEN, err)
		}
		for _, rec := range recs {
			row := []string{a.PEN, rec.ID, strconv.FormatBool(rec.IsSaved), string(rec.Source())}
			for _, field := range e.Fields {
				row = append(row, merge.Text(rec.Values[field]))
			}
			labels := make(map[string]string)
			for _, l := range portal.Derived(entity, rec, today) {
				labels[l.Name] = l.Value
			}
			for _, col := range extra {
				row = append(row, labels[col])
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}
