package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/normalize"
	"github.com/atinyakov/JobBoard/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ApplicationSink is the write side of the backend used by Applications.
type ApplicationSink interface {
	CreateApplication(ctx context.Context, token string, p contentapi.ApplicationPayload) (json.RawMessage, error)
	ListApplications(ctx context.Context, token string) (json.RawMessage, error)
}

// Session is what Applications needs from a session.Manager.
type Session interface {
	State() session.State
	OpenLoginPrompt()
}

// ApplicationInput is the apply form.
type ApplicationInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,number,max=15"`
}

// Applications submits and lists job applications for the session holder.
type Applications struct {
	sink     ApplicationSink
	validate *validator.Validate
	log      *zap.Logger
}

// NewApplications constructs an Applications service.
func NewApplications(sink ApplicationSink, log *zap.Logger) *Applications {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applications{sink: sink, validate: validator.New(validator.WithRequiredStructEnabled()), log: log}
}

// token returns the session token, or opens the login prompt and returns
// ErrLoginRequired for an anonymous session.
func token(sess Session) (string, error) {
	st := sess.State()
	if !st.Authenticated() {
		sess.OpenLoginPrompt()
		return "", models.ErrLoginRequired
	}
	return st.Token, nil
}

// Submit applies to jobID with in. Anonymous sessions get the login prompt
// opened and ErrLoginRequired back without any request being made. Invalid
// input is a *models.ValidationError.
func (a *Applications) Submit(ctx context.Context, sess Session, jobID int64, in ApplicationInput) (models.Application, error) {
	tok, err := token(sess)
	if err != nil {
		return models.Application{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.Join(strings.Fields(in.Phone), "")
	if err := a.check(in); err != nil {
		return models.Application{}, err
	}

	payload := contentapi.ApplicationPayload{
		Name:              in.Name,
		Email:             in.Email,
		ApplicationStatus: string(models.StatusPending),
		Job:               jobID,
	}
	if in.Phone != "" {
		n, err := strconv.ParseInt(in.Phone, 10, 64)
		if err != nil {
			return models.Application{}, &models.ValidationError{Fields: map[string]string{"phone": "is not a valid number"}}
		}
		payload.Phone = &n
	}

	raw, err := a.sink.CreateApplication(ctx, tok, payload)
	if err != nil {
		return models.Application{}, errors.Wrapf(err, "apply to job %d", jobID)
	}

	app, err := normalize.Application(raw)
	if err != nil {
		// The application was accepted; echo what was sent.
		a.log.Warn("unreadable application response", zap.Error(err))
		app = models.Application{Job: models.Job{Title: models.UnknownTitle}}
	}
	if app.Name == "" {
		app.Name = in.Name
	}
	if app.Email == "" {
		app.Email = in.Email
	}
	if app.Phone == "" {
		app.Phone = in.Phone
	}
	if app.Job.ID == 0 {
		app.Job.ID = jobID
	}
	a.log.Info("application submitted", zap.Int64("job_id", jobID), zap.Int64("application_id", app.ID))
	return app, nil
}

func (a *Applications) check(in ApplicationInput) error {
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate application")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = reason(fe)
	}
	return &models.ValidationError{Fields: fields}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "number":
		return "must contain digits only"
	case "max":
		return "is too long"
	default:
		return "is invalid"
	}
}

// Mine lists the applications visible to the session holder. It is gated
// like Submit.
func (a *Applications) Mine(ctx context.Context, sess Session) ([]models.Application, error) {
	tok, err := token(sess)
	if err != nil {
		return nil, err
	}
	raw, err := a.sink.ListApplications(ctx, tok)
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	apps, err := normalize.Applications(raw)
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	return apps, nil
}
