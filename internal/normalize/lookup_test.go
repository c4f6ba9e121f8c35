package normalize

import (
	"encoding/json"
	"testing"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawList(t *testing.T, items ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		out = append(out, json.RawMessage(it))
	}
	return out
}

func TestFind(t *testing.T) {
	candidates := rawList(t,
		`{"id": 1, "documentId": "doc-one", "Title": "Job 42 Specialist"}`,
		`{"id": 42, "documentId": "doc-two", "Title": "Accountant"}`,
		`{"id": 3, "documentId": "42", "attributes": {"JobTitle": "Data Engineer"}}`,
		`{"data": {"id": 9, "attributes": {"title": "Frontend Developer"}}}`,
	)

	tests := []struct {
		name    string
		ident   string
		wantID  int64
		wantErr bool
	}{
		{name: "numeric id beats earlier title match", ident: "42", wantID: 42},
		{name: "document id", ident: "doc-one", wantID: 1},
		{name: "title substring, case-insensitive", ident: "data eng", wantID: 3},
		{name: "wrapped candidate by id", ident: "9", wantID: 9},
		{name: "wrapped candidate by title", ident: "FRONTEND", wantID: 9},
		{name: "surrounding spaces ignored", ident: "  3 ", wantID: 3},
		{name: "no match", ident: "plumber", wantErr: true},
		{name: "empty ident", ident: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Find(candidates, tt.ident)
			if tt.wantErr {
				assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, job.ID)
		})
	}
}

func TestFind_DocumentIDBeatsTitle(t *testing.T) {
	candidates := rawList(t,
		`{"id": 1, "Title": "Role xyz"}`,
		`{"id": 2, "documentId": "xyz", "Title": "Other"}`,
	)
	job, err := Find(candidates, "xyz")
	require.NoError(t, err)
	assert.Equal(t, int64(2), job.ID)
}

func TestFind_PlaceholderTitleNeverMatches(t *testing.T) {
	candidates := rawList(t, `{"id": 5}`)
	_, err := Find(candidates, models.UnknownTitle)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestFind_ReturnsNormalizedJob(t *testing.T) {
	job, err := Find(rawList(t, wrappedJob), "abc123")
	require.NoError(t, err)
	assert.Equal(t, expectedJob(), job)
}
