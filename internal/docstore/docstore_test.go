package docstore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karmasri/internal/auth"
	"karmasri/internal/docstore"
	"karmasri/internal/testutil"
	"karmasri/pkg/models"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")

type env struct {
	r      *gin.Engine
	repo   *auth.Repo
	tokens auth.TokenService
	owner  string
	other  string
	gad    string
}

func setup(t *testing.T, maxBytes int64) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	accounts := auth.NewRepo(db)
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "karmasri-test", Duration: time.Hour}

	r := gin.New()
	g := r.Group("/doc-uploader", auth.AuthMiddleware(tokens, accounts))
	docstore.NewHandler(docstore.NewRepo(db), accounts, docstore.SQLiteBlobs{DB: db}, maxBytes, nil).RegisterRoutes(g)

	return &env{
		r:      r,
		repo:   accounts,
		tokens: tokens,
		owner:  testutil.CreateOfficer(t, db, "PEN100", models.RoleOfficer, "password123"),
		other:  testutil.CreateOfficer(t, db, "PEN200", models.RoleOfficer, "password123"),
		gad:    testutil.CreateOfficer(t, db, "GAD1", models.RoleGAD, "password123"),
	}
}

func (e *env) token(t *testing.T, id string) string {
	t.Helper()
	a, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	tok, _, err := e.tokens.Sign(a)
	require.NoError(t, err)
	return tok
}

func (e *env) upload(t *testing.T, as, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	return e.uploadFor(t, as, "", name, data)
}

// uploadFor uploads as `as`, naming officerID as owner when set.
func (e *env) uploadFor(t *testing.T, as, officerID, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	path := "/doc-uploader/upload"
	if officerID != "" {
		path += "?officer_id=" + officerID
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) do(t *testing.T, as, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func TestUploadGetDelete(t *testing.T) {
	e := setup(t, 1<<20)

	w := e.upload(t, e.owner, "certificate.pdf", pdf)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		DocumentID  string `json:"document_id"`
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, "certificate.pdf", resp.FileName)
	assert.Equal(t, "application/pdf", resp.ContentType)
	assert.Equal(t, int64(len(pdf)), resp.Size)

	path := "/doc-uploader/get-document/" + resp.DocumentID
	w = e.do(t, e.owner, http.MethodGet, path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf, w.Body.Bytes())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, e.do(t, e.gad, http.MethodGet, path).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, e.other, http.MethodGet, path).Code)

	del := "/doc-uploader/document/" + resp.DocumentID
	assert.Equal(t, http.StatusNotFound, e.do(t, e.gad, http.MethodDelete, del).Code)
	assert.Equal(t, http.StatusOK, e.do(t, e.owner, http.MethodDelete, del).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, e.owner, http.MethodGet, path).Code)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	e := setup(t, 1<<20)
	w := e.upload(t, e.owner, "notes.pdf", []byte("just some text pretending to be a pdf"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadRejectsLargeFile(t *testing.T) {
	e := setup(t, 16)
	w := e.upload(t, e.owner, "certificate.pdf", pdf)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	e := setup(t, 1<<20)
	w := e.do(t, e.owner, http.MethodPost, "/doc-uploader/upload")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGADUploadsForOfficer(t *testing.T) {
	e := setup(t, 1<<20)

	w := e.uploadFor(t, e.gad, e.owner, "cert.pdf", pdf)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	path := "/doc-uploader/get-document/" + resp.DocumentID

	w = e.do(t, e.owner, http.MethodGet, path)
	require.Equal(t, http.StatusOK, w.Code, "the officer owns what GAD uploaded for them")
	assert.Equal(t, pdf, w.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, e.do(t, e.other, http.MethodGet, path).Code)
	assert.Equal(t, http.StatusOK, e.do(t, e.gad, http.MethodGet, path).Code)
}

func TestUploadForAnotherOfficerNeedsGAD(t *testing.T) {
	e := setup(t, 1<<20)

	assert.Equal(t, http.StatusForbidden, e.uploadFor(t, e.other, e.owner, "cert.pdf", pdf).Code)
	assert.Equal(t, http.StatusNotFound, e.uploadFor(t, e.gad, "no-such-officer", "cert.pdf", pdf).Code)
	assert.Equal(t, http.StatusCreated, e.uploadFor(t, e.owner, e.owner, "cert.pdf", pdf).Code)
}
