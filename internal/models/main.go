// Package models defines the canonical data structures for job listings,
// applications and the users that submit them.
package models

import "time"

// UnknownTitle is used when a job record exists but carries no usable title.
const UnknownTitle = "Unknown"

// User is the identity record returned by the content backend on login.
type User struct {
	// ID is the numeric primary key of the user.
	ID int64 `json:"id"`
	// Username is the display/login name, if any.
	Username string `json:"username,omitempty"`
	// Email is the user's e-mail address, if any.
	Email string `json:"email,omitempty"`
}

// Job is the canonical, normalized representation of a job posting.
// Optional fields are empty strings when the backend did not supply them.
type Job struct {
	ID          int64     `json:"id"`
	DocumentID  string    `json:"documentId,omitempty"`
	Title       string    `json:"title"`
	Company     string    `json:"company,omitempty"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logoUrl,omitempty"`
	Location    string    `json:"location,omitempty"`
	Level       string    `json:"level,omitempty"`
	Field       string    `json:"field,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApplicationStatus is the review state of an application. It is driven by
// the backend and never edited client-side.
type ApplicationStatus string

const (
	// StatusPending is the state of a freshly submitted application.
	StatusPending ApplicationStatus = "Pending"
	// StatusAccepted marks an application accepted by the employer.
	StatusAccepted ApplicationStatus = "Accepted"
	// StatusRejected marks an application rejected by the employer.
	StatusRejected ApplicationStatus = "Rejected"
)

// ParseApplicationStatus maps a backend status string onto a known status.
// Unknown or empty values are reported as pending.
func ParseApplicationStatus(s string) ApplicationStatus {
	switch ApplicationStatus(s) {
	case StatusAccepted:
		return StatusAccepted
	case StatusRejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// Application is a job application as read back from the backend.
type Application struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Status    ApplicationStatus `json:"status"`
	Job       Job               `json:"job"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Filters narrows a job listing. Empty fields do not filter.
type Filters struct {
	// Query is matched case-insensitively against title, company,
	// description, location and field.
	Query string
	// Level, Location and Field must match exactly, ignoring case.
	Level    string
	Location string
	Field    string
}

// FilterOptions lists the values offered for each facet filter.
type FilterOptions struct {
	Levels    []string `json:"levels"`
	Locations []string `json:"locations"`
	Fields    []string `json:"fields"`
}
