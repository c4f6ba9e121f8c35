package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

const dateLayout = "2006-01-02"

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func renderJobs(w io.Writer, jobs []models.Job) error {
	if len(jobs) == 0 {
		pterm.Info.WithWriter(w).Println("No jobs match")
		return nil
	}
	data := pterm.TableData{{"ID", "Title", "Company", "Location", "Level", "Field", "Posted"}}
	for _, j := range jobs {
		data = append(data, []string{
			strconv.FormatInt(j.ID, 10),
			j.Title,
			orDash(j.Company),
			orDash(j.Location),
			orDash(j.Level),
			orDash(j.Field),
			date(j.CreatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

func renderJob(w io.Writer, j models.Job) error {
	pterm.Fprintln(w, pterm.Bold.Sprint(j.Title))
	data := pterm.TableData{
		{"ID", strconv.FormatInt(j.ID, 10)},
		{"Document ID", orDash(j.DocumentID)},
		{"Company", orDash(j.Company)},
		{"Location", orDash(j.Location)},
		{"Level", orDash(j.Level)},
		{"Field", orDash(j.Field)},
		{"Posted", date(j.CreatedAt)},
	}
	if j.LogoURL != "" {
		data = append(data, []string{"Logo", j.LogoURL})
	}
	if err := pterm.DefaultTable.WithData(data).WithWriter(w).Render(); err != nil {
		return err
	}
	if j.Description != "" {
		pterm.Fprintln(w)
		pterm.Fprintln(w, j.Description)
	}
	return nil
}

func renderFilters(w io.Writer, opts models.FilterOptions) error {
	data := pterm.TableData{
		{"Levels", orDash(strings.Join(opts.Levels, ", "))},
		{"Locations", orDash(strings.Join(opts.Locations, ", "))},
		{"Fields", orDash(strings.Join(opts.Fields, ", "))},
	}
	return pterm.DefaultTable.WithData(data).WithWriter(w).Render()
}

func renderApplications(w io.Writer, apps []models.Application) error {
	if len(apps) == 0 {
		pterm.Info.WithWriter(w).Println("No applications yet")
		return nil
	}
	data := pterm.TableData{{"ID", "Job", "Company", "Status", "Submitted"}}
	for _, a := range apps {
		data = append(data, []string{
			strconv.FormatInt(a.ID, 10),
			a.Job.Title,
			orDash(a.Job.Company),
			statusText(a.Status),
			date(a.CreatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

func statusText(s models.ApplicationStatus) string {
	switch s {
	case models.StatusAccepted:
		return pterm.Green(string(s))
	case models.StatusRejected:
		return pterm.Red(string(s))
	default:
		return pterm.Yellow(string(s))
	}
}

func renderSession(w io.Writer, u *models.User, path string, exp time.Time, hasExp bool) error {
	data := pterm.TableData{}
	if u != nil {
		data = append(data,
			[]string{"User", orDash(u.Username)},
			[]string{"Email", orDash(u.Email)},
			[]string{"ID", strconv.FormatInt(u.ID, 10)},
		)
	} else {
		data = append(data, []string{"User", "unknown"})
	}
	expires := "unknown"
	if hasExp {
		expires = exp.Local().Format(time.RFC1123)
	}
	data = append(data, []string{"Expires", expires}, []string{"Session file", path})
	return pterm.DefaultTable.WithData(data).WithWriter(w).Render()
}

// describe turns err into the message shown to the user.
func describe(err error) string {
	var (
		validationErr *models.ValidationError
		regErr        *models.RegistrationError
		authErr       *models.AuthenticationError
		netErr        *models.NetworkError
		apiErr        *models.APIError
	)
	switch {
	case errors.As(err, &validationErr):
		return "Please check your input: " + strings.TrimPrefix(validationErr.Error(), "invalid input: ")
	case errors.As(err, &regErr):
		if regErr.Step == models.StepLogin {
			return "Account created, but logging in failed: " + regErr.Message
		}
		return "Registration failed: " + regErr.Message
	case errors.As(err, &authErr):
		return "Login failed: " + authErr.Message
	case errors.Is(err, models.ErrLoginRequired):
		return "You need to log in first (jobboard login)"
	case errors.Is(err, models.ErrNotFound):
		return "Job not found"
	case errors.As(err, &netErr):
		return "Cannot reach the job board backend: " + netErr.Err.Error()
	case errors.As(err, &apiErr):
		return "Backend error: " + apiErr.Message
	default:
		return err.Error()
	}
}

func printError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(describe(err))
	for _, hint := range errors.GetAllHints(err) {
		pterm.Info.WithWriter(w).Println(hint)
	}
}
