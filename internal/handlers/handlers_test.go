package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashinth-ffyo/harmony-cup/internal/export"
	"github.com/ashinth-ffyo/harmony-cup/internal/handlers"
	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/registry"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
)

func newRouter(t *testing.T, teams handlers.TeamRegistry) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	handlers.New(teams, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	reg, err := registry.New(context.Background(), store.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, err)
	return newRouter(t, reg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validTeam = `{
	"Name_1": "Ann", "Name_2": "Bo", "Name_3": "Cy", "Name_4": "Di", "Name_5": "Ed",
	"Class_1": "1A", "Class_2": "2A", "Class_3": "3A", "Class_4": "4A", "Class_5": "5A"
}`

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetSchema(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var schema handlers.Schema
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&schema))
	assert.Equal(t, models.Categories, schema.Categories)
	assert.Equal(t, models.Columns, schema.Columns)
	assert.Len(t, schema.RequiredFields, 10)
	assert.Equal(t, []string{"Type"}, schema.OptionalFields)
	assert.Equal(t, []models.Status{"Not Yet", "Passed", "Failed"}, schema.StatusOptions)
}

func TestCreateTeam(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/categories/F1/teams", validTeam)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp handlers.CreateTeamResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.RefNo)
	assert.Equal(t, 1, resp.Team.RefNo)
	assert.Equal(t, "Ann", resp.Team.Name1)
	assert.Equal(t, models.StatusNotYet, resp.Team.Final)

	rec = do(t, h, http.MethodPost, "/api/categories/F1/teams", validTeam)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.RefNo)
}

func TestCreateTeam_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"missing field", `{"Name_1": "Ann"}`, "Name_2 cannot be empty"},
		{"unknown field", `{"Name_1": "Ann", "Coach": "Zed"}`, "invalid request body"},
		{"ref no not accepted", `{"REF_NO": 9, "Name_1": "Ann"}`, "invalid request body"},
		{"malformed json", `{"Name_1": `, "invalid request body"},
		{"bad status", strings.Replace(validTeam, `"Class_5": "5A"`, `"Class_5": "5A", "Round1": "Won"`, 1), "Round1 must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t), http.MethodPost, "/api/categories/F1/teams", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.errMsg)
		})
	}
}

func TestUnknownCategory(t *testing.T) {
	h := newTestServer(t)
	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/categories/F7/teams", ""},
		{http.MethodPost, "/api/categories/F7/teams", validTeam},
		{http.MethodPatch, "/api/categories/F7/teams/1", `{"Type": "x"}`},
		{http.MethodDelete, "/api/categories/F7/teams/1", ""},
	} {
		rec := do(t, h, req.method, req.path, req.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", req.method, req.path)
	}
}

func TestListTeams_Sorted(t *testing.T) {
	h := newTestServer(t)
	for _, name := range []string{"Cara", "Abe", "Bea"} {
		body := strings.Replace(validTeam, `"Ann"`, `"`+name+`"`, 1)
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/categories/AS/teams", body).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/categories/AS/teams?sort=Name_1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var teams []models.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&teams))
	require.Len(t, teams, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{teams[0].RefNo, teams[1].RefNo, teams[2].RefNo})
}

func TestListTeams_EmptyIsArray(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/categories/F4/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateTeam(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/categories/F2/teams", validTeam).Code)

	rec := do(t, h, http.MethodPatch, "/api/categories/F2/teams/1", `{"Type": "Mixed", "Round2": "Failed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var team models.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&team))
	assert.Equal(t, 1, team.RefNo)
	assert.Equal(t, "Mixed", team.Type)
	assert.Equal(t, models.StatusFailed, team.Round2)
	assert.Equal(t, "Ann", team.Name1)
}

func TestUpdateTeam_Errors(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/categories/F2/teams", validTeam).Code)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing team", "/api/categories/F2/teams/9", `{"Type": "x"}`, http.StatusNotFound},
		{"bad ref", "/api/categories/F2/teams/abc", `{"Type": "x"}`, http.StatusBadRequest},
		{"zero ref", "/api/categories/F2/teams/0", `{"Type": "x"}`, http.StatusBadRequest},
		{"ref in body", "/api/categories/F2/teams/1", `{"REF_NO": 5}`, http.StatusBadRequest},
		{"bad status", "/api/categories/F2/teams/1", `{"Final": "Won"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestDeleteTeam(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/categories/F3/teams", validTeam).Code)

	rec := do(t, h, http.MethodDelete, "/api/categories/F3/teams/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting again is not an error.
	rec = do(t, h, http.MethodDelete, "/api/categories/F3/teams/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/categories/F3/teams", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExport(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/categories/F1/teams", validTeam).Code)

	rec := do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Harmony Cup.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

// failingRegistry reports a storage failure for every call.
type failingRegistry struct{}

var errStorage = &store.IOError{Op: "reading snapshot", Path: "teams.json", Err: errors.New("permission denied")}

func (failingRegistry) List(context.Context, string, string) ([]models.Team, error) {
	return nil, errStorage
}

func (failingRegistry) Insert(context.Context, string, models.TeamFields) (models.Team, error) {
	return models.Team{}, errStorage
}

func (failingRegistry) Patch(context.Context, string, int, models.TeamPatch) (models.Team, error) {
	return models.Team{}, errStorage
}

func (failingRegistry) Delete(context.Context, string, int) error {
	return errStorage
}

func TestStorageFailureIs500(t *testing.T) {
	h := newRouter(t, failingRegistry{})

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/categories/F1/teams", ""},
		{http.MethodPost, "/api/categories/F1/teams", validTeam},
		{http.MethodPatch, "/api/categories/F1/teams/1", `{"Type": "x"}`},
		{http.MethodDelete, "/api/categories/F1/teams/1", ""},
		{http.MethodGet, "/api/export", ""},
	} {
		rec := do(t, h, req.method, req.path, req.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, "%s %s", req.method, req.path)
		assert.Contains(t, decodeError(t, rec), "permission denied")
	}
}

// racedRegistry stores teams but loses them before any later read, as when a
// concurrent delete lands right after a write.
type racedRegistry struct {
	failingRegistry
}

func (racedRegistry) Insert(_ context.Context, _ string, fields models.TeamFields) (models.Team, error) {
	return models.Team{RefNo: 4, TeamFields: fields}, nil
}

func (racedRegistry) Patch(_ context.Context, _ string, refNo int, patch models.TeamPatch) (models.Team, error) {
	var t models.Team
	t.RefNo = refNo
	patch.ApplyTo(&t.TeamFields)
	return t, nil
}

func TestMutationsRespondWithStoredTeam(t *testing.T) {
	h := newRouter(t, racedRegistry{})

	rec := do(t, h, http.MethodPost, "/api/categories/F1/teams", validTeam)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created handlers.CreateTeamResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, 4, created.RefNo)
	assert.Equal(t, "Ann", created.Team.Name1)

	rec = do(t, h, http.MethodPatch, "/api/categories/F1/teams/4", `{"Type": "Mixed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, 4, updated.RefNo)
	assert.Equal(t, "Mixed", updated.Type)
}
