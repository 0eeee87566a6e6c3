// Package queue carries notification events over RabbitMQ so the API can hand
// off email delivery to a consumer.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"bureau-engine/internal/domain"
)

const (
	EventContactSubmitted = "contact.submitted"
	EventProjectCreated   = "project.created"
)

// Envelope is the body of every message on the notification queue.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type ContactSubmittedEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company,omitempty"`
	ProjectType string    `json:"project_type,omitempty"`
	Budget      string    `json:"budget,omitempty"`
	Timeline    string    `json:"timeline,omitempty"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ProjectCreatedEvent struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	ClientName string `json:"client_name,omitempty"`
}

func newContactSubmittedEvent(c domain.Contact) ContactSubmittedEvent {
	return ContactSubmittedEvent{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Company:     c.Company,
		ProjectType: c.ProjectType,
		Budget:      c.Budget,
		Timeline:    c.Timeline,
		Message:     c.Message,
		SubmittedAt: c.CreatedAt,
	}
}

func (e ContactSubmittedEvent) contact() domain.Contact {
	return domain.Contact{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Company:     e.Company,
		ProjectType: e.ProjectType,
		Budget:      e.Budget,
		Timeline:    e.Timeline,
		Message:     e.Message,
		CreatedAt:   e.SubmittedAt,
	}
}

func newProjectCreatedEvent(p domain.Project) ProjectCreatedEvent {
	return ProjectCreatedEvent{
		ID:         p.ID,
		Title:      p.Title,
		Category:   p.Category,
		Status:     string(p.Status),
		ClientName: p.Client.Name,
	}
}

func (e ProjectCreatedEvent) project() domain.Project {
	return domain.Project{
		ID:       e.ID,
		Title:    e.Title,
		Category: e.Category,
		Status:   domain.ProjectStatus(e.Status),
		Client:   domain.ProjectClient{Name: e.ClientName},
	}
}

func encodeEnvelope(eventType string, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, OccurredAt: now.UTC(), Payload: raw})
}
