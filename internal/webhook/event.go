package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind classifies what happened to the job posting upstream.
type EventKind string

const (
	KindCreated EventKind = "created"
	KindUpdated EventKind = "updated"
	KindDeleted EventKind = "deleted"
)

// Status is the job posting's publication status at the source system.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusDraft  Status = "draft"
)

// Job carries the posting attributes used for announcement copy and links.
// Read-only once classified.
type Job struct {
	ID             string
	Title          string
	Body           string
	Excerpt        string
	Status         Status
	CompanyName    string
	CompanySlug    string
	Department     string
	Locations      []string
	EmploymentType string
	RemoteStatus   string
	MinSalary      int
	MaxSalary      int
	Currency       string
}

// Location returns the primary location, or "" when none was sent.
func (j Job) Location() string {
	if len(j.Locations) == 0 {
		return ""
	}
	return j.Locations[0]
}

// Event is the classified form of an inbound webhook delivery.
type Event struct {
	Kind EventKind
	Job  Job
}

// rawPayload mirrors the sender's wire shape. The source system has shipped
// two spellings for several fields; both are accepted (schema drift
// tolerance).
type rawPayload struct {
	EventName string `json:"event_name,omitempty"`
	Event     string `json:"event,omitempty"`

	ID             json.Number `json:"id,omitempty"`
	Title          string      `json:"title,omitempty"`
	Body           string      `json:"body,omitempty"`
	Pitch          string      `json:"pitch,omitempty"`
	Excerpt        string      `json:"excerpt,omitempty"`
	Status         string      `json:"status,omitempty"`
	CompanyName    string      `json:"company_name,omitempty"`
	CompanySlug    string      `json:"company_slug,omitempty"`
	Department     string      `json:"department,omitempty"`
	Locations      []string    `json:"locations,omitempty"`
	EmploymentType string      `json:"employment_type,omitempty"`
	RemoteStatus   string      `json:"remote_status,omitempty"`
	MinSalary      int         `json:"min_salary,omitempty"`
	MaxSalary      int         `json:"max_salary,omitempty"`
	Currency       string      `json:"currency,omitempty"`
}

// Classify parses and normalizes an inbound payload.
//
// Errors are terminal for the delivery (the sender gets a 4xx): unknown event
// name, unparseable JSON, or a missing job id.
func Classify(body []byte) (Event, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("parse payload: %w", err)
	}

	name := raw.EventName
	if name == "" {
		name = raw.Event
	}
	kind, err := parseEventKind(name)
	if err != nil {
		return Event{}, err
	}

	id := strings.TrimSpace(raw.ID.String())
	if id == "" {
		return Event{}, fmt.Errorf("payload has no job id")
	}

	excerpt := raw.Pitch
	if excerpt == "" {
		excerpt = raw.Excerpt
	}

	return Event{
		Kind: kind,
		Job: Job{
			ID:             id,
			Title:          strings.TrimSpace(raw.Title),
			Body:           raw.Body,
			Excerpt:        strings.TrimSpace(excerpt),
			Status:         Status(strings.ToLower(strings.TrimSpace(raw.Status))),
			CompanyName:    strings.TrimSpace(raw.CompanyName),
			CompanySlug:    strings.TrimSpace(raw.CompanySlug),
			Department:     strings.TrimSpace(raw.Department),
			Locations:      raw.Locations,
			EmploymentType: strings.TrimSpace(raw.EmploymentType),
			RemoteStatus:   strings.TrimSpace(raw.RemoteStatus),
			MinSalary:      raw.MinSalary,
			MaxSalary:      raw.MaxSalary,
			Currency:       strings.TrimSpace(raw.Currency),
		},
	}, nil
}

func parseEventKind(name string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "job.created":
		return KindCreated, nil
	// The sender emits both spellings depending on API version.
	case "job.updated", "job.update":
		return KindUpdated, nil
	case "job.deleted":
		return KindDeleted, nil
	case "":
		return "", fmt.Errorf("payload has no event name")
	default:
		return "", fmt.Errorf("unknown event name %q", name)
	}
}
