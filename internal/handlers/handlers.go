package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ashinth-ffyo/harmony-cup/internal/export"
	"github.com/ashinth-ffyo/harmony-cup/internal/middleware"
	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/registry"
)

// TeamRegistry is the registry surface the API drives.
type TeamRegistry interface {
	List(ctx context.Context, category, sortField string) ([]models.Team, error)
	Insert(ctx context.Context, category string, fields models.TeamFields) (models.Team, error)
	Patch(ctx context.Context, category string, refNo int, patch models.TeamPatch) (models.Team, error)
	Delete(ctx context.Context, category string, refNo int) error
}

type Handler struct {
	teams    TeamRegistry
	exporter *export.Exporter
	log      zerolog.Logger
}

func New(teams TeamRegistry, log zerolog.Logger) *Handler {
	return &Handler{teams: teams, exporter: export.New(teams), log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", h.GetSchema)
		r.Get("/export", h.Export)
		r.Route("/categories/{category}/teams", func(r chi.Router) {
			r.Get("/", h.ListTeams)
			r.Post("/", h.CreateTeam)
			r.Patch("/{refNo}", h.UpdateTeam)
			r.Delete("/{refNo}", h.DeleteTeam)
		})
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type Schema struct {
	Categories     []models.Category `json:"categories"`
	Columns        []string          `json:"columns"`
	RequiredFields []string          `json:"requiredFields"`
	OptionalFields []string          `json:"optionalFields"`
	RoundFields    []string          `json:"roundFields"`
	StatusOptions  []models.Status   `json:"statusOptions"`
}

func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Schema{
		Categories:     models.Categories,
		Columns:        models.Columns,
		RequiredFields: models.RequiredFields,
		OptionalFields: models.OptionalFields,
		RoundFields:    models.RoundFields,
		StatusOptions:  models.StatusOptions,
	})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context(), chi.URLParam(r, "category"), r.URL.Query().Get("sort"))
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

type CreateTeamResponse struct {
	RefNo int         `json:"refNo"`
	Team  models.Team `json:"team"`
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var fields models.TeamFields
	if err := decodeStrict(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.teams.Insert(r.Context(), chi.URLParam(r, "category"), fields)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateTeamResponse{RefNo: team.RefNo, Team: team})
}

func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	refNo, err := parseRefNo(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch models.TeamPatch
	if err := decodeStrict(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.teams.Patch(r.Context(), chi.URLParam(r, "category"), refNo, patch)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	refNo, err := parseRefNo(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.teams.Delete(r.Context(), chi.URLParam(r, "category"), refNo); err != nil {
		h.writeRegistryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.ExportAll(r.Context())
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseRefNo(r *http.Request) (int, error) {
	refNo, err := strconv.Atoi(chi.URLParam(r, "refNo"))
	if err != nil || refNo < 1 {
		return 0, fmt.Errorf("invalid %s", models.ColRefNo)
	}
	return refNo, nil
}

// decodeStrict rejects unknown keys so records only ever carry declared columns.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
