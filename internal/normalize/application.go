package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
)

// Application normalizes one application record, including its populated
// job relation. A missing job relation yields a job with UnknownTitle.
func Application(raw json.RawMessage) (models.Application, error) {
	if isNull(raw) {
		return models.Application{}, models.ErrNotFound
	}
	o, ok := decodeObject(raw)
	if !ok {
		return models.Application{}, errors.Wrap(models.ErrMalformedResponse, "application payload is not an object")
	}
	src := resolve(o)

	app := models.Application{
		Name:      src.str("Name", "name"),
		Email:     src.str("Email", "email"),
		Phone:     phone(src["Phone"], src["phone"]),
		Status:    models.ParseApplicationStatus(src.str("ApplicationStatus", "status")),
		CreatedAt: timestamp(src, createdKeys...),
		Job:       models.Job{Title: models.UnknownTitle},
	}
	if id, ok := number(src["id"]); ok {
		app.ID = id
	}
	if rawJob, ok := src.first("job", "Job"); ok {
		if job, err := Job(rawJob); err == nil {
			app.Job = job
		}
	}
	return app, nil
}

// Applications normalizes a list response of applications.
func Applications(body json.RawMessage) ([]models.Application, error) {
	items, err := Items(body)
	if err != nil {
		return nil, err
	}
	apps := make([]models.Application, 0, len(items))
	for _, item := range items {
		app, err := Application(item)
		if err != nil {
			continue
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// phone accepts the phone number as a string or as a number.
func phone(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if s, ok := text(raw); ok {
			return s
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || isNull(raw) {
			continue
		}
		if n, ok := number(raw); ok {
			return strconv.FormatInt(n, 10)
		}
	}
	return ""
}

// FacetNames extracts display names from a list of level, location or field
// entities. key is the entity's capitalised name field ("Level",
// "Location", "Field"). Entries without a name are dropped and duplicates
// are removed, keeping the first occurrence.
func FacetNames(body json.RawMessage, key string) ([]string, error) {
	items, err := Items(body)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(key)
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		o, ok := decodeObject(item)
		if !ok {
			continue
		}
		name := o.str(key)
		if name == "" {
			if attrs, ok := decodeObject(o["attributes"]); ok {
				name = attrs.str(key, lower)
			}
		}
		if name == "" {
			name = o.str(lower, "name")
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}
