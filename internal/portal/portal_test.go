package portal_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karmasri/internal/api"
	"karmasri/internal/auth"
	"karmasri/internal/documents"
	"karmasri/internal/merge"
	"karmasri/internal/portal"
	"karmasri/internal/snapshot"
	"karmasri/internal/testutil"
	"karmasri/pkg/models"
)

type fakeSpark struct{}

func (fakeSpark) FetchOfficer(_ context.Context, pen string) (models.SparkProfile, error) {
	return models.SparkProfile{
		PEN: pen,
		Training: []map[string]any{
			{"subject": "Leadership", "conducted_by": "IMG Kerala", "from_date": "2024-01-10", "to_date": "2024-01-20"},
		},
	}, nil
}

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")

func pdfFile(name string) documents.File {
	return documents.File{Name: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(pdf)), nil
	}}
}

func brokenFile(name string) documents.File {
	return documents.File{Name: name, Open: func() (io.ReadCloser, error) {
		return nil, errors.New("unreadable")
	}}
}

func serve(t *testing.T) (string, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		DB:       db,
		Tokens:   auth.TokenService{Secret: []byte("k"), Issuer: "karmasri-test", Duration: time.Hour},
		Spark:    fakeSpark{},
		MaxBytes: 1 << 20,
	}))
	t.Cleanup(srv.Close)
	return srv.URL, db
}

func login(t *testing.T, baseURL, pen string) *portal.Client {
	t.Helper()
	cache, err := snapshot.Open(snapshot.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	c := portal.NewClient(baseURL, cache, nil)
	_, err = c.Login(context.Background(), pen, "password123")
	require.NoError(t, err)
	return c
}

func setup(t *testing.T) *portal.Client {
	t.Helper()
	url, db := serve(t)
	testutil.CreateOfficer(t, db, "PEN100", models.RoleOfficer, "password123")
	return login(t, url, "PEN100")
}

func TestBundleRequiresLogin(t *testing.T) {
	c := portal.NewClient("http://127.0.0.1:1", nil, nil)
	_, err := c.Bundle(context.Background())
	assert.ErrorIs(t, err, portal.ErrNotLoggedIn)
}

func TestSaveAttachDetachDelete(t *testing.T) {
	ctx := context.Background()
	c := setup(t)

	recs, err := c.Section(ctx, "training")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.False(t, recs[0].IsSaved)
	assert.Equal(t, merge.PlaceholderID(0), recs[0].ID)

	s, err := c.Edit("training", recs[0])
	require.NoError(t, err)
	require.Error(t, s.Set("subject", "Other"), "prefilled SPARK field is locked")
	require.NoError(t, s.Set("location", "Thiruvananthapuram"))

	saved, err := c.Save(ctx, s)
	require.NoError(t, err)
	assert.True(t, saved.IsSaved)
	assert.False(t, merge.IsPlaceholderID(saved.ID))
	assert.Equal(t, "Thiruvananthapuram", saved.Values["location"])

	// the snapshot was repopulated, so the matched record is served from it
	recs, err = c.Section(ctx, "training")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, saved.ID, recs[0].ID)
	assert.Equal(t, "Thiruvananthapuram", recs[0].Values["location"])

	s, err = c.Edit("training", recs[0])
	require.NoError(t, err)
	withDoc, batch, err := c.Attach(ctx, s, []documents.File{pdfFile("a.pdf"), brokenFile("b.pdf")})
	require.NoError(t, err)
	require.Len(t, batch.IDs(), 1)
	require.Len(t, batch.Failed(), 1)
	assert.Equal(t, batch.IDs()[0], withDoc.Values["documents"])

	body, err := c.Download(ctx, batch.IDs()[0])
	require.NoError(t, err)
	assert.Equal(t, pdf, body)

	s, err = c.Edit("training", withDoc)
	require.NoError(t, err)
	cleared, err := c.Detach(ctx, s, batch.IDs()[0])
	require.NoError(t, err)
	assert.True(t, merge.IsEmpty(cleared.Values["documents"]))

	recs, err = c.Section(ctx, "training")
	require.NoError(t, err)
	assert.True(t, merge.IsEmpty(recs[0].Values["documents"]))

	require.NoError(t, c.Delete(ctx, "training", recs[0]))
	recs, err = c.Section(ctx, "training")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].IsSaved)
}

func TestSaveWithoutChanges(t *testing.T) {
	c := setup(t)
	s, err := c.Edit("education", merge.DisplayRecord{})
	require.NoError(t, err)
	_, err = c.Save(context.Background(), s)
	assert.ErrorIs(t, err, portal.ErrNoChanges)
}

func TestValidationErrorSurfaces(t *testing.T) {
	c := setup(t)
	s, err := c.Edit("education", merge.DisplayRecord{})
	require.NoError(t, err)
	require.NoError(t, s.Set("grade", "A"))

	_, err = c.Save(context.Background(), s)
	var apiErr *portal.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Fields, "qualification_name")
}

func TestDeletePlaceholderRefused(t *testing.T) {
	c := setup(t)
	err := c.Delete(context.Background(), "training", merge.DisplayRecord{ID: merge.PlaceholderID(0)})
	assert.ErrorIs(t, err, portal.ErrNotSaved)
}

func TestGADAttachIsReadableByOfficer(t *testing.T) {
	ctx := context.Background()
	url, db := serve(t)
	officerID := testutil.CreateOfficer(t, db, "PEN100", models.RoleOfficer, "password123")
	testutil.CreateOfficer(t, db, "GAD1", models.RoleGAD, "password123")

	gad := login(t, url, "GAD1")
	gad.OfficerID = officerID
	s, err := gad.Edit("education", merge.DisplayRecord{})
	require.NoError(t, err)
	require.NoError(t, s.Set("qualification_name", "B.A."))
	_, batch, err := gad.Attach(ctx, s, []documents.File{pdfFile("degree.pdf")})
	require.NoError(t, err)
	require.Len(t, batch.IDs(), 1)

	officer := login(t, url, "PEN100")
	recs, err := officer.Section(ctx, "education")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, batch.IDs()[0], recs[0].Values["documents"])

	body, err := officer.Download(ctx, batch.IDs()[0])
	require.NoError(t, err)
	assert.Equal(t, pdf, body)
}

func TestEmptyValueLeavesFieldUntouched(t *testing.T) {
	ctx := context.Background()
	c := setup(t)

	recs, err := c.Section(ctx, "training")
	require.NoError(t, err)
	s, err := c.Edit("training", recs[0])
	require.NoError(t, err)
	require.NoError(t, s.Set("location", "Kochi"))
	saved, err := c.Save(ctx, s)
	require.NoError(t, err)

	s, err = c.Edit("training", saved)
	require.NoError(t, err)
	require.NoError(t, s.Set("location", ""))
	_, inPayload := s.Payload().UserData["location"]
	assert.False(t, inPayload, "empty values are not sent")

	_, err = c.Save(ctx, s)
	require.NoError(t, err)
	recs, err = c.Section(ctx, "training")
	require.NoError(t, err)
	assert.Equal(t, "Kochi", recs[0].Values["location"])
}
