package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/atinyakov/JobBoard/internal/models"
)

// matchRule decides whether a resolved record is addressed by ident.
type matchRule func(src object, ident string) bool

// lookupRules are applied as separate passes over all candidates, so an id
// match anywhere beats a title match earlier in the list.
var lookupRules = []matchRule{
	matchNumericID,
	matchDocumentID,
	matchTitle,
}

// Find resolves ident against a list of raw job records. It tries, in order:
// exact numeric id, exact document id, then case-insensitive substring of
// the title. The first match is normalized and returned; otherwise
// ErrNotFound.
//
// The title rule is loose: a short or common ident can match an unintended
// record.
func Find(candidates []json.RawMessage, ident string) (models.Job, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return models.Job{}, models.ErrNotFound
	}

	sources := make([]object, 0, len(candidates))
	for _, c := range candidates {
		if o, ok := decodeObject(c); ok {
			sources = append(sources, resolve(o))
		}
	}

	for _, rule := range lookupRules {
		for _, src := range sources {
			if rule(src, ident) {
				return jobFrom(src), nil
			}
		}
	}
	return models.Job{}, models.ErrNotFound
}

func matchNumericID(src object, ident string) bool {
	id, ok := number(src["id"])
	return ok && strconv.FormatInt(id, 10) == ident
}

func matchDocumentID(src object, ident string) bool {
	doc := src.str("documentId")
	return doc != "" && doc == ident
}

func matchTitle(src object, ident string) bool {
	title := src.str(titleKeys...)
	return title != "" && strings.Contains(strings.ToLower(title), strings.ToLower(ident))
}
