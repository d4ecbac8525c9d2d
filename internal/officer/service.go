// Package officer stores profile sub-entity records with per-field
// provenance and serves the merged profile views.
package officer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"karmasri/internal/documents"
	"karmasri/internal/merge"
	"karmasri/internal/metrics"
	"karmasri/internal/provenance"
	"karmasri/internal/spark"
	"karmasri/pkg/models"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrNotFound      = errors.New("record not found")
	ErrEmptyPayload  = errors.New("payload carries no fields")
)

// SparkSource fetches an officer's SPARK projection.
type SparkSource interface {
	FetchOfficer(ctx context.Context, pen string) (models.SparkProfile, error)
}

type Service struct {
	Repo  *Repo
	Spark SparkSource
	Log   *zap.Logger
}

func NewService(repo *Repo, src SparkSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Repo: repo, Spark: src, Log: log}
}

func lookup(entity string) (merge.Entity, error) {
	e, ok := merge.Lookup(entity)
	if !ok {
		return merge.Entity{}, fmt.Errorf("%s: %w", entity, ErrUnknownEntity)
	}
	return e, nil
}

// fetch degrades to an empty profile when SPARK is unreachable so local
// records stay visible.
func (s *Service) fetch(ctx context.Context, pen string) models.SparkProfile {
	if s.Spark == nil {
		return models.SparkProfile{PEN: pen}
	}
	p, err := s.Spark.FetchOfficer(ctx, pen)
	if err != nil {
		s.Log.Warn("spark fetch failed", zap.String("pen", pen), zap.Error(err))
		return models.SparkProfile{PEN: pen}
	}
	return p
}

// Bundle returns the SPARK projection next to every stored record.
func (s *Service) Bundle(ctx context.Context, officerID, pen string) (models.ProfileBundle, error) {
	out := models.ProfileBundle{
		SparkData:   s.fetch(ctx, pen),
		OfficerData: make(map[string][]map[string]any),
	}
	for _, name := range merge.Names() {
		e, _ := merge.Lookup(name)
		recs, err := s.Repo.List(ctx, officerID, name)
		if err != nil {
			return out, err
		}
		list := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			list = append(list, e.Encode(r))
		}
		out.OfficerData[name] = list
	}
	return out, nil
}

// Section merges one entity for the officer.
func (s *Service) Section(ctx context.Context, officerID, pen, entity string) ([]merge.DisplayRecord, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	local, err := s.Repo.List(ctx, officerID, entity)
	if err != nil {
		return nil, err
	}
	external := spark.Section(s.fetch(ctx, pen), entity)

	recs, outcome := merge.MergeWithOutcome(e, external, local)
	metrics.MergeRecords.WithLabelValues(entity, "matched").Add(float64(outcome.Matched))
	metrics.MergeRecords.WithLabelValues(entity, "placeholder").Add(float64(outcome.Placeholder))
	metrics.MergeRecords.WithLabelValues(entity, "local_only").Add(float64(outcome.LocalOnly))
	return recs, nil
}

// Save creates (id == "") or updates a record. spark_data is stored under
// DB_SPARK_API and user_data under the writer's tag; user_data wins when a
// field appears in both.
func (s *Service) Save(ctx context.Context, officerID, role, entity, id string, p models.SavePayload) (*merge.LocalRecord, error) {
	e, err := lookup(entity)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, ErrEmptyPayload
	}

	combined := make(map[string]any, len(p.SparkData)+len(p.UserData))
	writes := make(map[string]Write, len(combined))
	add := func(src map[string]any, tag provenance.Tag) {
		for field, v := range src {
			combined[field] = v
			writes[field] = newWrite(field, v, tag)
		}
	}
	add(p.SparkData, provenance.TagSpark)
	add(p.UserData, provenance.TagFor(role))

	create := id == ""
	if err := Validate(e, combined, create); err != nil {
		return nil, err
	}

	var rec *merge.LocalRecord
	if create {
		rec, err = s.Repo.Create(ctx, officerID, entity, writes)
	} else {
		rec, err = s.Repo.Update(ctx, officerID, entity, id, writes)
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func newWrite(field string, v any, tag provenance.Tag) Write {
	if merge.IsEmpty(v) {
		return Write{Tag: tag}
	}
	if field == "documents" {
		list := documents.Normalize(merge.Text(v))
		if list == "" {
			return Write{Tag: tag}
		}
		return Write{Value: list, Tag: tag}
	}
	return Write{Value: normalizeValue(field, v), Tag: tag}
}

func (s *Service) Delete(ctx context.Context, officerID, entity, id string) error {
	if _, err := lookup(entity); err != nil {
		return err
	}
	ok, err := s.Repo.Delete(ctx, officerID, entity, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
