package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/service"
	"github.com/atinyakov/JobBoard/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	CreateFunc func(ctx context.Context, token string, p contentapi.ApplicationPayload) (json.RawMessage, error)
	ListFunc   func(ctx context.Context, token string) (json.RawMessage, error)
}

func (m *mockSink) CreateApplication(ctx context.Context, token string, p contentapi.ApplicationPayload) (json.RawMessage, error) {
	return m.CreateFunc(ctx, token, p)
}
func (m *mockSink) ListApplications(ctx context.Context, token string) (json.RawMessage, error) {
	return m.ListFunc(ctx, token)
}

type fakeSession struct {
	state session.State
}

func (s *fakeSession) State() session.State { return s.state }
func (s *fakeSession) OpenLoginPrompt()     { s.state.LoginPromptVisible = true }

func failingSink(t *testing.T) *mockSink {
	return &mockSink{
		CreateFunc: func(context.Context, string, contentapi.ApplicationPayload) (json.RawMessage, error) {
			t.Fatal("no request may be sent")
			return nil, nil
		},
		ListFunc: func(context.Context, string) (json.RawMessage, error) {
			t.Fatal("no request may be sent")
			return nil, nil
		},
	}
}

func TestSubmit_AnonymousOpensPrompt(t *testing.T) {
	sess := &fakeSession{}
	svc := service.NewApplications(failingSink(t), nil)

	_, err := svc.Submit(context.Background(), sess, 7, service.ApplicationInput{Name: "Ann", Email: "ann@x.com"})

	assert.True(t, errors.Is(err, models.ErrLoginRequired))
	assert.True(t, sess.state.LoginPromptVisible)
}

func TestMine_AnonymousOpensPrompt(t *testing.T) {
	sess := &fakeSession{}
	_, err := service.NewApplications(failingSink(t), nil).Mine(context.Background(), sess)

	assert.True(t, errors.Is(err, models.ErrLoginRequired))
	assert.True(t, sess.state.LoginPromptVisible)
}

func TestSubmit_Success(t *testing.T) {
	var got contentapi.ApplicationPayload
	sink := &mockSink{
		CreateFunc: func(_ context.Context, token string, p contentapi.ApplicationPayload) (json.RawMessage, error) {
			assert.Equal(t, "T1", token)
			got = p
			return json.RawMessage(`{"data": {"id": 31, "documentId": "x", "Name": "Ann Lee", "Email": "ann@x.com",
				"Phone": 5551234, "ApplicationStatus": "Pending"}}`), nil
		},
	}
	sess := &fakeSession{state: session.State{Token: "T1"}}

	app, err := service.NewApplications(sink, nil).Submit(context.Background(), sess, 7,
		service.ApplicationInput{Name: "  Ann Lee ", Email: "ann@x.com", Phone: "555 1234"})
	require.NoError(t, err)

	require.NotNil(t, got.Phone)
	assert.Equal(t, int64(5551234), *got.Phone)
	assert.Equal(t, "Ann Lee", got.Name)
	assert.Equal(t, "Pending", got.ApplicationStatus)
	assert.Equal(t, int64(7), got.Job)

	assert.Equal(t, int64(31), app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, int64(7), app.Job.ID)
	assert.False(t, sess.state.LoginPromptVisible)
}

func TestSubmit_EmptyPhoneIsNull(t *testing.T) {
	sink := &mockSink{
		CreateFunc: func(_ context.Context, _ string, p contentapi.ApplicationPayload) (json.RawMessage, error) {
			assert.Nil(t, p.Phone)
			return json.RawMessage(`{"data": {"id": 1}}`), nil
		},
	}
	app, err := service.NewApplications(sink, nil).Submit(context.Background(),
		&fakeSession{state: session.State{Token: "T"}}, 3, service.ApplicationInput{Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", app.Name)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		in     service.ApplicationInput
		field  string
		reason string
	}{
		{name: "missing name", in: service.ApplicationInput{Email: "a@x.com"}, field: "name"},
		{name: "bad email", in: service.ApplicationInput{Name: "A", Email: "not-an-email"}, field: "email"},
		{name: "phone with letters", in: service.ApplicationInput{Name: "A", Email: "a@x.com", Phone: "call me"}, field: "phone"},
		{name: "negative phone", in: service.ApplicationInput{Name: "A", Email: "a@x.com", Phone: "-5"}, field: "phone", reason: "must contain digits only"},
		{name: "phone with plus sign", in: service.ApplicationInput{Name: "A", Email: "a@x.com", Phone: "+33"}, field: "phone", reason: "must contain digits only"},
		{name: "decimal phone", in: service.ApplicationInput{Name: "A", Email: "a@x.com", Phone: "1.5"}, field: "phone", reason: "must contain digits only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewApplications(failingSink(t), nil)
			_, err := svc.Submit(context.Background(), &fakeSession{state: session.State{Token: "T"}}, 1, tt.in)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, verr.Fields[tt.field])
			}
		})
	}
}

func TestSubmit_BackendError(t *testing.T) {
	sink := &mockSink{
		CreateFunc: func(context.Context, string, contentapi.ApplicationPayload) (json.RawMessage, error) {
			return nil, &models.APIError{Status: 403, Message: "Failed to submit application"}
		},
	}
	_, err := service.NewApplications(sink, nil).Submit(context.Background(),
		&fakeSession{state: session.State{Token: "T"}}, 1, service.ApplicationInput{Name: "A", Email: "a@x.com"})

	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to submit application", apiErr.Message)
}

func TestMine(t *testing.T) {
	sink := &mockSink{
		ListFunc: func(_ context.Context, token string) (json.RawMessage, error) {
			assert.Equal(t, "T", token)
			return json.RawMessage(`{"data": [{"id": 1, "Name": "Ann", "ApplicationStatus": "Rejected",
				"job": {"id": 4, "Title": "Tester"}}]}`), nil
		},
	}
	apps, err := service.NewApplications(sink, nil).Mine(context.Background(), &fakeSession{state: session.State{Token: "T"}})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, models.StatusRejected, apps[0].Status)
	assert.Equal(t, "Tester", apps[0].Job.Title)
}
