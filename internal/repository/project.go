package repository

import (
	"context"

	"bureau-engine/internal/domain"
)

// ProjectRepository exposes persistence operations for portfolio projects.
type ProjectRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	// List returns projects ordered featured first, then by display order,
	// then newest first.
	List(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error)
	// ListPaged returns a newest-first page and the total match count.
	ListPaged(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, int, error)
	CountByCategory(ctx context.Context, statuses ...domain.ProjectStatus) ([]domain.CategoryCount, error)
}
