package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karmasri/internal/auth"
	"karmasri/internal/testutil"
	"karmasri/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *auth.Repo) {
	t.Helper()
	db := testutil.OpenDB(t)
	repo := auth.NewRepo(db)
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "karmasri-test", Duration: time.Hour}

	r := gin.New()
	auth.NewHandler(repo, tokens).RegisterRoutes(r.Group("/auth"))

	testutil.CreateOfficer(t, db, "PEN100", models.RoleOfficer, "password123")
	testutil.CreateOfficer(t, db, "GAD1", models.RoleGAD, "password123")
	return r, repo
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, login string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/auth/login", "", map[string]string{"login": login, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLoginByPENAndEmail(t *testing.T) {
	r, _ := setup(t)

	token := login(t, r, "PEN100")
	w := do(r, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me models.Officer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "PEN100", me.PEN)
	assert.Equal(t, models.RoleOfficer, me.Role)

	login(t, r, "pen100@kerala.gov.in")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _ := setup(t)
	w := do(r, http.MethodPost, "/auth/login", "", map[string]string{"login": "PEN100", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	r, _ := setup(t)
	token := login(t, r, "PEN100")

	w := do(r, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRequiresGAD(t *testing.T) {
	r, repo := setup(t)
	body := map[string]string{
		"pen": "PEN200", "name": "New Officer", "email": "new@kerala.gov.in", "password": "password123",
	}

	w := do(r, http.MethodPost, "/auth/register", login(t, r, "PEN100"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/auth/register", login(t, r, "GAD1"), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	a, err := repo.GetByPEN(t.Context(), "PEN200")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.RoleOfficer, a.Role)
}

func TestTokenIssuerChecked(t *testing.T) {
	signer := auth.TokenService{Secret: []byte("k"), Issuer: "a", Duration: time.Minute}
	other := auth.TokenService{Secret: []byte("k"), Issuer: "b", Duration: time.Minute}

	tok, _, err := signer.Sign(&auth.Account{ID: "1", PEN: "P", Role: models.RoleOfficer})
	require.NoError(t, err)

	claims, err := signer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "P", claims.PEN)

	_, err = other.Parse(tok)
	assert.Error(t, err)
}
