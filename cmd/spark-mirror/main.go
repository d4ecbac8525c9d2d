package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	var (
		addr = flag.String("addr", ":9000", "listen address")
		dir  = flag.String("dir", "data/spark", "directory of <pen>.json profiles")
	)
	flag.Parse()

	// serves <dir>/<pen>.json at GET /officers/{pen}
	http.HandleFunc("GET /officers/{pen}", func(w http.ResponseWriter, r *http.Request) {
		pen := r.PathValue("pen")
		if pen == "" || strings.ContainsAny(pen, `/\.`) {
			http.Error(w, "invalid pen", http.StatusBadRequest)
			return
		}

		b, err := os.ReadFile(filepath.Join(*dir, pen+".json"))
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "officer not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "cannot read profile: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// validate JSON so a bad file doesn't silently break the portal
		var tmp map[string]any
		if err := json.Unmarshal(b, &tmp); err != nil {
			http.Error(w, pen+".json invalid JSON: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})

	log.Printf("spark-mirror serving %s on %s", *dir, *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
