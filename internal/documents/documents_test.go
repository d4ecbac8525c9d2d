package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "id1,id2,id3", Normalize(" id1 ,id2,, id3 "))
	assert.Equal(t, "", Normalize(" , ,"))
	assert.Equal(t, "", Normalize(""))
}

func TestAppend(t *testing.T) {
	assert.Equal(t, "a,b,c", Append("a, b", "c"))
	assert.Equal(t, "c,d", Append("", "c", " ", "d"))
	assert.Equal(t, "a", Append("a,"))
}

func TestRemove(t *testing.T) {
	assert.Equal(t, "a,c", Remove("a, b ,c", "b"))
	assert.Equal(t, "a,b", Remove("a,b", "ab"), "exact match only")
	assert.Equal(t, "", Remove("b", "b"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(" x , y", "y"))
	assert.False(t, Contains("xy", "x"))
}

func memFile(name, body string) File {
	return File{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

func TestUploadAllPartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	u := Uploader{Upload: func(ctx context.Context, name string, r io.Reader) (string, error) {
		calls.Add(1)
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		if string(b) == "bad" {
			return "", errors.New("rejected")
		}
		return "doc-" + name, nil
	}}

	files := []File{
		memFile("a.pdf", "ok"),
		memFile("b.pdf", "bad"),
		{Name: "c.pdf", Open: func() (io.ReadCloser, error) { return nil, errors.New("missing") }},
		memFile("d.pdf", "ok"),
	}

	batch := u.UploadAll(context.Background(), files)
	require.Len(t, batch.Results, 4)
	assert.Equal(t, []string{"doc-a.pdf", "doc-d.pdf"}, batch.IDs())

	failed := batch.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "b.pdf", failed[0].Name)
	assert.Equal(t, "c.pdf", failed[1].Name)
	assert.EqualValues(t, 3, calls.Load())
}

func TestUploadAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := Uploader{Limit: 1, Upload: func(ctx context.Context, name string, r io.Reader) (string, error) {
		t.Fatal("upload should not run")
		return "", nil
	}}
	batch := u.UploadAll(ctx, []File{memFile("a", "x")})
	assert.Empty(t, batch.IDs())
	assert.ErrorIs(t, batch.Results[0].Err, context.Canceled)
}
