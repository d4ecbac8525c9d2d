package officer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karmasri/internal/auth"
	"karmasri/internal/events"
	"karmasri/internal/merge"
	"karmasri/internal/officer"
	"karmasri/internal/testutil"
	"karmasri/pkg/models"
)

type fakeSpark map[string]models.SparkProfile

func (f fakeSpark) FetchOfficer(_ context.Context, pen string) (models.SparkProfile, error) {
	if p, ok := f[pen]; ok {
		return p, nil
	}
	return models.SparkProfile{PEN: pen}, nil
}

type env struct {
	r       *gin.Engine
	tokens  auth.TokenService
	repo    *auth.Repo
	officer string
	gad     string
	other   string
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)

	accounts := auth.NewRepo(db)
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "karmasri-test", Duration: time.Hour}
	src := fakeSpark{
		"PEN100": {
			PEN: "PEN100",
			Training: []map[string]any{
				{"subject": "Leadership", "conducted_by": "IMG Kerala", "from_date": "2024-01-10"},
				{"subject": "Ethics", "conducted_by": "LBSNAA", "from_date": "2023-05-01"},
			},
			Dependents: map[string]any{"father_name": "Raman", "spouse_name": "Lakshmi"},
		},
	}
	svc := officer.NewService(officer.NewRepo(db), src, nil)

	hub := events.NewHub(nil)
	r := gin.New()
	r.GET("/ws", events.WSHandler(hub))
	g := r.Group("/officer", auth.AuthMiddleware(tokens, accounts))
	officer.NewHandler(svc, accounts, hub).RegisterRoutes(g)

	return &env{
		r:       r,
		tokens:  tokens,
		repo:    accounts,
		officer: testutil.CreateOfficer(t, db, "PEN100", models.RoleOfficer, "password123"),
		gad:     testutil.CreateOfficer(t, db, "GAD1", models.RoleGAD, "password123"),
		other:   testutil.CreateOfficer(t, db, "PEN200", models.RoleOfficer, "password123"),
	}
}

func (e *env) token(t *testing.T, id string) string {
	t.Helper()
	a, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	tok, _, err := e.tokens.Sign(a)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, as, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func recordID(t *testing.T, body map[string]any, idField string) string {
	t.Helper()
	id, ok := body[idField].(float64)
	require.True(t, ok, "missing %s in %v", idField, body)
	return fmt.Sprintf("%d", int64(id))
}

func fields(body map[string]any, tag string) map[string]any {
	f, _ := body["fields"].(map[string]any)
	m, _ := f[tag].(map[string]any)
	return m
}

func TestCreateAndMergeTraining(t *testing.T) {
	e := setup(t)

	w, body := e.do(t, e.officer, http.MethodPost, "/officer/training", models.SavePayload{
		SparkData: map[string]any{"subject": "Leadership", "institute_name": "IMG Kerala", "training_from": "2024-01-10"},
		UserData:  map[string]any{"location": "Thiruvananthapuram", "training_to": "20/01/2024"},
	})
	require.Equal(t, http.StatusCreated, w.Code, body)
	recordID(t, body, "ais_training_id")
	assert.Equal(t, "Leadership", fields(body, "DB_SPARK_API")["subject"])
	assert.Equal(t, "2024-01-20", fields(body, "AIS_OFFICER")["training_to"])

	w, body = e.do(t, e.officer, http.MethodGet, "/officer/profile/training", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items, _ := body["items"].([]any)
	require.Len(t, items, 2)

	matched := items[0].(map[string]any)
	assert.Equal(t, true, matched["isSaved"])
	assert.Equal(t, "Thiruvananthapuram", matched["location"])
	assert.Equal(t, "MIXED", matched["_source"])

	ph := items[1].(map[string]any)
	assert.Equal(t, merge.PlaceholderID(1), ph["id"])
	assert.Equal(t, false, ph["isSaved"])
	assert.Equal(t, "SPARK", ph["_source"])
}

func TestBundle(t *testing.T) {
	e := setup(t)

	w, _ := e.do(t, e.officer, http.MethodPost, "/officer/education", models.SavePayload{
		UserData: map[string]any{"qualification_name": "MBA", "year_of_passing": 2010},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := e.do(t, e.officer, http.MethodGet, "/officer/officer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	spark := body["spark_data"].(map[string]any)
	assert.Equal(t, "PEN100", spark["pen"])

	data := body["officer_data"].(map[string]any)
	edu := data["education"].([]any)
	require.Len(t, edu, 1)
	assert.Equal(t, float64(2010), fields(edu[0].(map[string]any), "AIS_OFFICER")["year_of_passing"])
	assert.Empty(t, data["training"])
}

func TestValidationFailure(t *testing.T) {
	e := setup(t)

	w, body := e.do(t, e.officer, http.MethodPost, "/officer/training", models.SavePayload{
		UserData: map[string]any{"institute_name": "IMG", "training_from": "not a date", "colour": "blue"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", body["error"])

	f := body["fields"].(map[string]any)
	assert.Contains(t, f, "subject")
	assert.Contains(t, f, "training_from")
	assert.Contains(t, f, "colour")
}

func TestGADWritesForOfficer(t *testing.T) {
	e := setup(t)

	w, body := e.do(t, e.officer, http.MethodPost, "/officer/dependents", models.SavePayload{
		UserData: map[string]any{"relationship_type": "Spouse", "name": "Lakshmi"},
	})
	require.Equal(t, http.StatusCreated, w.Code, body)
	id := recordID(t, body, "ais_dependent_id")

	path := "/officer/dependents/" + id + "?officer_id=" + e.officer
	w, body = e.do(t, e.gad, http.MethodPut, path, models.SavePayload{
		UserData: map[string]any{"divorce_date": "2020-03-01", "removing_reason": "1"},
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "2020-03-01", fields(body, "GAD_OFFICER")["divorce_date"])
	assert.Equal(t, "Lakshmi", fields(body, "AIS_OFFICER")["name"])

	w, body = e.do(t, e.officer, http.MethodGet, "/officer/profile/dependents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	require.Len(t, items, 2) // Father placeholder, matched Spouse
	spouse := items[1].(map[string]any)
	assert.Equal(t, "divorced", spouse["status"])

	w, _ = e.do(t, e.other, http.MethodGet, "/officer/officer?officer_id="+e.officer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordsAreScopedToOfficer(t *testing.T) {
	e := setup(t)

	w, body := e.do(t, e.officer, http.MethodPost, "/officer/education", models.SavePayload{
		UserData: map[string]any{"qualification_name": "BTech"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := recordID(t, body, "ais_education_id")

	w, _ = e.do(t, e.other, http.MethodPut, "/officer/education/"+id, models.SavePayload{
		UserData: map[string]any{"grade": "A"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = e.do(t, e.other, http.MethodDelete, "/officer/education/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = e.do(t, e.officer, http.MethodDelete, "/officer/education/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, e.officer, http.MethodDelete, "/officer/education/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownEntity(t *testing.T) {
	e := setup(t)
	w, _ := e.do(t, e.officer, http.MethodGet, "/officer/profile/pets", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = e.do(t, e.officer, http.MethodPost, "/officer/pets", models.SavePayload{UserData: map[string]any{"a": "b"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyPayloadRejected(t *testing.T) {
	e := setup(t)
	w, _ := e.do(t, e.officer, http.MethodPost, "/officer/training", models.SavePayload{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsFollowSaveOrder(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.r)
	t.Cleanup(srv.Close)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?officer_id=" + e.officer
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	read := func() events.ProfileEvent {
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		var ev events.ProfileEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	}
	read() // welcome

	w, body := e.do(t, e.officer, http.MethodPost, "/officer/training", models.SavePayload{
		UserData: map[string]any{"subject": "Budgeting", "institute_name": "KILA", "training_from": "2024-02-01"},
	})
	require.Equal(t, http.StatusCreated, w.Code, body)
	id := recordID(t, body, "ais_training_id")

	w, _ = e.do(t, e.officer, http.MethodPut, "/officer/training/"+id, models.SavePayload{
		UserData: map[string]any{"location": "Thrissur"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, e.officer, http.MethodDelete, "/officer/training/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, want := range []string{events.TypeProfileUpdate, events.TypeProfileUpdate, events.TypeProfileDelete} {
		ev := read()
		assert.Equal(t, want, ev.Type)
		assert.Equal(t, id, ev.RecordID)
		assert.Equal(t, e.officer, ev.OfficerID)
	}
}
