package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/notify"
	"bureau-engine/internal/repository"
)

var (
	ContactProjectTypes = []string{
		"Business Website",
		"E-commerce Platform",
		"Web Application",
		"Portfolio Site",
		"Landing Page",
		"API Development",
		"Maintenance & Support",
		"Other",
	}
	ContactBudgets = []string{
		"$2,000 - $5,000",
		"$5,000 - $10,000",
		"$10,000 - $25,000",
		"$25,000 - $50,000",
		"$50,000+",
	}
	ContactTimelines = []string{
		"ASAP",
		"1-2 weeks",
		"1 month",
		"2-3 months",
		"3+ months",
		"Just exploring",
	}
)

// DefaultDuplicateWindow is how long an email address must wait between submissions.
const DefaultDuplicateWindow = time.Hour

type ContactInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Company     string `json:"company" validate:"max=100"`
	ProjectType string `json:"projectType" validate:"omitempty,project_type"`
	Budget      string `json:"budget" validate:"omitempty,budget"`
	Timeline    string `json:"timeline" validate:"omitempty,timeline"`
	Message     string `json:"message" validate:"required,min=10,max=2000"`
}

type contactStatusUpdate struct {
	Status domain.ContactStatus `json:"status" validate:"required,oneof=new contacted in-progress converted closed"`
	Notes  string               `json:"notes" validate:"max=1000"`
}

// SubmissionMeta records where a submission came from.
type SubmissionMeta struct {
	IPAddress string
	UserAgent string
}

// ContactService handles contact form submissions and their admin workflow.
type ContactService interface {
	Submit(ctx context.Context, input ContactInput, meta SubmissionMeta) (*domain.Contact, error)
	List(ctx context.Context, filter domain.ContactFilter) ([]domain.Contact, domain.Pagination, error)
	UpdateStatus(ctx context.Context, id string, status domain.ContactStatus, notes *string) (*domain.Contact, error)
	Stats(ctx context.Context) (*domain.ContactStats, error)
}

type ContactConfig struct {
	DuplicateWindow time.Duration
	Logger          logrus.FieldLogger
	Now             func() time.Time
}

type contactService struct {
	contacts repository.ContactRepository
	notifier notify.Notifier
	cfg      ContactConfig
}

func NewContactService(contacts repository.ContactRepository, notifier notify.Notifier, cfg ContactConfig) ContactService {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = DefaultDuplicateWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &contactService{contacts: contacts, notifier: notifier, cfg: cfg}
}

func (s *contactService) Submit(ctx context.Context, input ContactInput, meta SubmissionMeta) (*domain.Contact, error) {
	input = normalizeContact(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.cfg.Now().UTC()
	recent, err := s.contacts.ExistsSince(ctx, input.Email, now.Add(-s.cfg.DuplicateWindow))
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, ErrDuplicateContact
	}

	contact := &domain.Contact{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Email:       input.Email,
		Company:     input.Company,
		ProjectType: input.ProjectType,
		Budget:      input.Budget,
		Timeline:    input.Timeline,
		Message:     input.Message,
		Status:      domain.ContactStatusNew,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		CreatedAt:   now,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.ContactSubmitted(ctx, *contact); err != nil {
			s.cfg.Logger.WithField("contact_id", contact.ID).Errorf("notify contact submission: %v", err)
		}
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, filter domain.ContactFilter) ([]domain.Contact, domain.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Pagination{}, &ValidationError{Fields: []FieldError{{Field: "status", Message: "is not a known status"}}}
	}
	filter.Page, filter.Limit = pageBounds(filter.Page, filter.Limit)

	contacts, total, err := s.contacts.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	for i := range contacts {
		contacts[i].IPAddress = ""
		contacts[i].UserAgent = ""
	}
	return contacts, domain.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *contactService) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus, notes *string) (*domain.Contact, error) {
	update := contactStatusUpdate{Status: status}
	if notes != nil {
		update.Notes = strings.TrimSpace(*notes)
		if update.Notes == "" {
			notes = nil
		} else {
			notes = &update.Notes
		}
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}
	contact, err := s.contacts.UpdateStatus(ctx, id, status, notes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return contact, nil
}

func (s *contactService) Stats(ctx context.Context) (*domain.ContactStats, error) {
	byStatus, err := s.contacts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}

	now := s.cfg.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	thisMonth, err := s.contacts.CountSince(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("count contacts this month: %w", err)
	}

	return &domain.ContactStats{Total: total, ThisMonth: thisMonth, ByStatus: byStatus}, nil
}

func normalizeContact(in ContactInput) ContactInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Company = strings.TrimSpace(in.Company)
	in.ProjectType = strings.TrimSpace(in.ProjectType)
	in.Budget = strings.TrimSpace(in.Budget)
	in.Timeline = strings.TrimSpace(in.Timeline)
	in.Message = strings.TrimSpace(in.Message)
	return in
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
