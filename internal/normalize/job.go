package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
)

// Field synonyms, in order of preference.
var (
	titleKeys       = []string{"Title", "JobTitle", "title"}
	companyKeys     = []string{"Company", "company"}
	descriptionKeys = []string{"Description", "description"}
	logoKeys        = []string{"Logo", "logo", "logoUrl"}
	locationKeys    = []string{"location", "Location"}
	levelKeys       = []string{"level", "Level"}
	fieldKeys       = []string{"field", "Field"}
	createdKeys     = []string{"createdAt", "created_at"}
)

// Job normalizes a single job payload. Envelopes ({"data": job}), the
// attributes wrapper and the canonical shape itself are all accepted.
//
// A null payload, or an envelope whose data is null at any nesting level,
// yields ErrNotFound.
// A payload that is not a JSON object yields ErrMalformedResponse. A record
// without any title gets models.UnknownTitle rather than an error.
func Job(raw json.RawMessage) (models.Job, error) {
	if isNull(raw) {
		return models.Job{}, models.ErrNotFound
	}
	o, ok := decodeObject(raw)
	if !ok {
		return models.Job{}, errors.Wrap(models.ErrMalformedResponse, "job payload is not an object")
	}
	if nullEnvelope(o) {
		return models.Job{}, models.ErrNotFound
	}
	return jobFrom(resolve(o)), nil
}

func jobFrom(src object) models.Job {
	job := models.Job{
		DocumentID:  src.str("documentId"),
		Title:       src.str(titleKeys...),
		Company:     src.str(companyKeys...),
		Description: src.str(descriptionKeys...),
		Location:    relationName(src, "Location", locationKeys...),
		Level:       relationName(src, "Level", levelKeys...),
		Field:       relationName(src, "Field", fieldKeys...),
		CreatedAt:   timestamp(src, createdKeys...),
	}
	if id, ok := number(src["id"]); ok {
		job.ID = id
	}
	if job.Title == "" {
		job.Title = models.UnknownTitle
	}
	if raw, ok := src.first(logoKeys...); ok {
		job.LogoURL = logoURL(raw)
	}
	return job
}

// relationName resolves a populated relation to its display name. The
// relation may be a plain string, a flat object or a data/attributes wrapped
// object; the name is read from the capitalised key, "name", or the
// lowercase key. Anything else means the relation is absent.
func relationName(src object, nameKey string, keys ...string) string {
	for _, k := range keys {
		raw, ok := src[k]
		if !ok || !populated(raw) {
			continue
		}
		if s, ok := text(raw); ok {
			return s
		}
		rel, ok := decodeObject(raw)
		if !ok {
			continue
		}
		if name := resolve(rel).str(nameKey, "name", strings.ToLower(nameKey)); name != "" {
			return name
		}
	}
	return ""
}

// logoURL reads a media field: either a URL string or an object with "url".
func logoURL(raw json.RawMessage) string {
	if s, ok := text(raw); ok {
		return s
	}
	media, ok := decodeObject(raw)
	if !ok {
		return ""
	}
	return resolve(media).str("url")
}

// Items splits a list response into its raw records. {"data": [...]},
// {"data": record} and a bare array are accepted; a missing or null data
// field yields an empty list.
func Items(body json.RawMessage) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if isNull(body) {
		return nil, nil
	}
	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, errors.Wrap(models.ErrMalformedResponse, err.Error())
		}
		return items, nil
	}
	o, ok := decodeObject(body)
	if !ok {
		return nil, errors.Wrap(models.ErrMalformedResponse, "list payload is neither an object nor an array")
	}
	data, ok := o["data"]
	if !ok || isNull(data) {
		return nil, nil
	}
	data = bytes.TrimSpace(data)
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, errors.Wrap(models.ErrMalformedResponse, err.Error())
		}
		return items, nil
	}
	return []json.RawMessage{data}, nil
}

// Jobs normalizes every record of a list response. Null or non-object
// entries are skipped.
func Jobs(body json.RawMessage) ([]models.Job, error) {
	items, err := Items(body)
	if err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(items))
	for _, item := range items {
		job, err := Job(item)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
