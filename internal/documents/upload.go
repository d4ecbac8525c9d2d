package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// File is one local file queued for upload.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// LocalFile reads from disk.
func LocalFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// UploadFunc stores one file and returns the issued document id.
type UploadFunc func(ctx context.Context, name string, r io.Reader) (string, error)

// Result is the outcome for a single file.
type Result struct {
	Name       string
	DocumentID string
	Err        error
}

// Batch holds per-file results in input order.
type Batch struct {
	Results []Result
}

// IDs returns the ids of the files that uploaded.
func (b Batch) IDs() []string {
	var out []string
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r.DocumentID)
		}
	}
	return out
}

// Failed returns the results that carry an error.
func (b Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Uploader sends files concurrently. One file failing does not stop or
// undo the others.
type Uploader struct {
	Upload UploadFunc
	// Limit caps in-flight uploads; zero means one goroutine per file.
	Limit int
}

// UploadAll waits for every file to settle.
func (u Uploader) UploadAll(ctx context.Context, files []File) Batch {
	results := make([]Result, len(files))

	var g errgroup.Group
	if u.Limit > 0 {
		g.SetLimit(u.Limit)
	}
	for i, f := range files {
		g.Go(func() error {
			results[i] = u.one(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	return Batch{Results: results}
}

func (u Uploader) one(ctx context.Context, f File) Result {
	res := Result{Name: f.Name}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if f.Open == nil {
		res.Err = fmt.Errorf("upload %s: no reader", f.Name)
		return res
	}
	rc, err := f.Open()
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", f.Name, err)
		return res
	}
	defer rc.Close()

	id, err := u.Upload(ctx, f.Name, rc)
	if err != nil {
		res.Err = fmt.Errorf("upload %s: %w", f.Name, err)
		return res
	}
	res.DocumentID = id
	return res
}
