// Package service holds the front-end use cases: browsing the job catalog
// and applying to jobs. It fetches through the content backend and hands
// every payload to the normalizer.
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/normalize"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobSource is the read side of the backend used by Catalog.
type JobSource interface {
	// ListJobs returns the job list envelope with relations populated.
	ListJobs(ctx context.Context) (json.RawMessage, error)
	// GetJob returns a single job envelope; a missing job is a 404 APIError.
	GetJob(ctx context.Context, ident string) (json.RawMessage, error)
	// ListFacets returns one filter collection envelope.
	ListFacets(ctx context.Context, kind string) (json.RawMessage, error)
}

// Catalog lists, searches and looks up jobs.
type Catalog struct {
	src JobSource
	log *zap.Logger
}

// NewCatalog constructs a Catalog over src.
func NewCatalog(src JobSource, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{src: src, log: log}
}

// List returns the jobs matching f. The query matches case-insensitively
// anywhere in title, company, description, location or field; level,
// location and field must match exactly, ignoring case.
func (c *Catalog) List(ctx context.Context, f models.Filters) ([]models.Job, error) {
	raw, err := c.src.ListJobs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	jobs, err := normalize.Jobs(raw)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}

	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if Matches(j, f) {
			out = append(out, j)
		}
	}
	return out, nil
}

// Matches reports whether job passes the filters.
func Matches(job models.Job, f models.Filters) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hit := false
		for _, s := range []string{job.Title, job.Company, job.Description, job.Location, job.Field} {
			if strings.Contains(strings.ToLower(s), q) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return sameFold(f.Level, job.Level) &&
		sameFold(f.Location, job.Location) &&
		sameFold(f.Field, job.Field)
}

// sameFold treats an empty filter as "any".
func sameFold(filter, value string) bool {
	return filter == "" || strings.EqualFold(filter, value)
}

// Detail returns the job identified by ident, a numeric id or document id.
// When the backend answers 404 the full list is searched instead (id, then
// document id, then title). models.ErrNotFound is returned when neither
// finds it.
func (c *Catalog) Detail(ctx context.Context, ident string) (models.Job, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return models.Job{}, models.ErrNotFound
	}

	raw, err := c.src.GetJob(ctx, ident)
	switch {
	case err == nil:
		job, err := normalize.Job(raw)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return models.Job{}, errors.Wrapf(err, "job %s", ident)
		}
	case models.IsStatus(err, http.StatusNotFound):
	default:
		return models.Job{}, errors.Wrapf(err, "job %s", ident)
	}

	c.log.Debug("job not found directly, searching the list", zap.String("ident", ident))

	list, err := c.src.ListJobs(ctx)
	if err != nil {
		return models.Job{}, errors.Wrap(err, "list jobs")
	}
	items, err := normalize.Items(list)
	if err != nil {
		return models.Job{}, errors.Wrap(err, "list jobs")
	}
	job, err := normalize.Find(items, ident)
	if err != nil {
		return models.Job{}, errors.Wrapf(err, "job %s", ident)
	}
	return job, nil
}

// FilterOptions fetches the level, location and field names concurrently.
func (c *Catalog) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	var opts models.FilterOptions

	g, gctx := errgroup.WithContext(ctx)
	facets := []struct {
		kind string
		key  string
		dst  *[]string
	}{
		{contentapi.FacetLevels, "Level", &opts.Levels},
		{contentapi.FacetLocations, "Location", &opts.Locations},
		{contentapi.FacetFields, "Field", &opts.Fields},
	}
	for _, f := range facets {
		g.Go(func() error {
			raw, err := c.src.ListFacets(gctx, f.kind)
			if err != nil {
				return errors.Wrapf(err, "list %s", f.kind)
			}
			names, err := normalize.FacetNames(raw, f.key)
			if err != nil {
				return errors.Wrapf(err, "list %s", f.kind)
			}
			*f.dst = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.FilterOptions{}, err
	}
	return opts, nil
}
