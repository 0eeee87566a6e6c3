package repository

import (
	"context"
	"time"

	"bureau-engine/internal/domain"
)

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, contact *domain.Contact) error
	Get(ctx context.Context, id string) (*domain.Contact, error)
	ExistsSince(ctx context.Context, email string, since time.Time) (bool, error)
	List(ctx context.Context, filter domain.ContactFilter) ([]domain.Contact, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.ContactStatus, notes *string) (*domain.Contact, error)
	CountByStatus(ctx context.Context) (map[domain.ContactStatus]int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}
