package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/notify"
	"bureau-engine/internal/repository"
	"bureau-engine/internal/storage"
)

// FeaturedLimit caps the featured projects shown on the landing page.
const FeaturedLimit = 6

type ProjectInput struct {
	Title           string                `json:"title" validate:"required,min=3,max=100"`
	Description     string                `json:"description" validate:"required,min=10,max=500"`
	LongDescription string                `json:"longDescription" validate:"max=2000"`
	Category        string                `json:"category" validate:"required,project_category"`
	Technologies    []string              `json:"technologies" validate:"min=1"`
	Features        []string              `json:"features" validate:"min=1"`
	Images          []domain.ProjectImage `json:"images" validate:"min=1,dive"`
	Links           domain.ProjectLinks   `json:"links"`
	Client          domain.ProjectClient  `json:"client"`
	Metrics         domain.ProjectMetrics `json:"metrics"`
	Status          domain.ProjectStatus  `json:"status" validate:"oneof=active completed archived draft"`
	Featured        bool                  `json:"featured"`
	Order           int                   `json:"order"`
}

// ProjectService manages the portfolio.
type ProjectService interface {
	ListPublic(ctx context.Context, category string, featuredOnly bool) ([]domain.Project, error)
	Categories(ctx context.Context) ([]domain.CategoryCount, error)
	Featured(ctx context.Context) ([]domain.Project, error)
	GetPublic(ctx context.Context, id string) (*domain.Project, error)
	Create(ctx context.Context, input ProjectInput) (*domain.Project, error)
	Update(ctx context.Context, id string, input ProjectInput) (*domain.Project, error)
	// Delete removes the project and its uploaded media. Media cleanup
	// failures are reported as warnings, not errors.
	Delete(ctx context.Context, id string) ([]string, error)
	ListAll(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, domain.Pagination, error)
	UploadImage(ctx context.Context, projectID, filename, contentType string, body io.Reader) (string, error)
	ListMedia(ctx context.Context, projectID string) ([]storage.ObjectInfo, error)
}

type projectService struct {
	projects repository.ProjectRepository
	storage  storage.Service
	notifier notify.Notifier
	logger   logrus.FieldLogger
}

// NewProjectService builds the portfolio service. store may be nil when no
// object storage is configured.
func NewProjectService(projects repository.ProjectRepository, store storage.Service, notifier notify.Notifier, logger logrus.FieldLogger) ProjectService {
	if logger == nil {
		logger = logrus.New()
	}
	return &projectService{
		projects: projects,
		storage:  store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *projectService) ListPublic(ctx context.Context, category string, featuredOnly bool) ([]domain.Project, error) {
	return s.projects.List(ctx, domain.ProjectFilter{
		Statuses:     domain.PublicProjectStatuses,
		Category:     category,
		FeaturedOnly: featuredOnly,
	})
}

func (s *projectService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	counts, err := s.projects.CountByCategory(ctx, domain.PublicProjectStatuses...)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return append([]domain.CategoryCount{{Category: domain.CategoryAll, Count: total}}, counts...), nil
}

func (s *projectService) Featured(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx, domain.ProjectFilter{
		Statuses:     domain.PublicProjectStatuses,
		FeaturedOnly: true,
		Limit:        FeaturedLimit,
	})
}

func (s *projectService) GetPublic(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !project.Status.Public() {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (s *projectService) Create(ctx context.Context, input ProjectInput) (*domain.Project, error) {
	project, err := buildProject(input)
	if err != nil {
		return nil, err
	}
	project.ID = uuid.NewString()

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.ProjectCreated(ctx, *project); err != nil {
			s.logger.WithField("project_id", project.ID).Errorf("notify project created: %v", err)
		}
	}
	return project, nil
}

func (s *projectService) Update(ctx context.Context, id string, input ProjectInput) (*domain.Project, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	project, err := buildProject(input)
	if err != nil {
		return nil, err
	}
	project.ID = existing.ID
	project.CreatedAt = existing.CreatedAt

	if err := s.projects.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, id string) ([]string, error) {
	if err := s.projects.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	var warnings []string
	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, projectMediaPrefix(id)); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete project media: %v", err))
			s.logger.WithField("project_id", id).Warnf("delete project media: %v", err)
		}
	}
	return warnings, nil
}

func (s *projectService) ListAll(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, domain.Pagination, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, domain.Pagination{}, &ValidationError{Fields: []FieldError{{Field: "status", Message: "is not a known status"}}}
		}
	}
	filter.Page, filter.Limit = pageBounds(filter.Page, filter.Limit)
	filter.FeaturedOnly = false

	projects, total, err := s.projects.ListPaged(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return projects, domain.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *projectService) UploadImage(ctx context.Context, projectID, filename, contentType string, body io.Reader) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}
	if _, err := s.get(ctx, projectID); err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", &ValidationError{Fields: []FieldError{{Field: "file", Message: "must be an image"}}}
	}

	ext := strings.ToLower(path.Ext(filename))
	key := projectMediaPrefix(projectID) + uuid.NewString() + ext
	url, err := s.storage.Upload(ctx, key, body, storage.UploadOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

func (s *projectService) ListMedia(ctx context.Context, projectID string) ([]storage.ObjectInfo, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if _, err := s.get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.storage.ListObjects(ctx, projectMediaPrefix(projectID))
}

func (s *projectService) get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.projects.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// projectMediaPrefix is slash-terminated so one project's prefix never
// matches another id that starts with the same characters.
func projectMediaPrefix(projectID string) string {
	return "projects/" + projectID + "/"
}

func buildProject(in ProjectInput) (*domain.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LongDescription = strings.TrimSpace(in.LongDescription)
	in.Technologies = trimAll(in.Technologies)
	in.Features = trimAll(in.Features)
	if in.Status == "" {
		in.Status = domain.ProjectStatusDraft
	}

	in.Images = trimImages(in.Images)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	images, err := normalizeImages(in.Images)
	if err != nil {
		return nil, err
	}

	return &domain.Project{
		Title:           in.Title,
		Description:     in.Description,
		LongDescription: in.LongDescription,
		Category:        in.Category,
		Technologies:    in.Technologies,
		Features:        in.Features,
		Images:          images,
		Links:           in.Links,
		Client:          in.Client,
		Metrics:         in.Metrics,
		Status:          in.Status,
		Featured:        in.Featured,
		Order:           in.Order,
	}, nil
}

// normalizeImages enforces at most one primary image and promotes the first
// image when none is marked.
func normalizeImages(images []domain.ProjectImage) ([]domain.ProjectImage, error) {
	out := slices.Clone(images)
	primaries := 0
	for _, img := range out {
		if img.IsPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return nil, ErrMultiplePrimaryImages
	}
	if primaries == 0 && len(out) > 0 {
		out[0].IsPrimary = true
	}
	return out, nil
}

func trimImages(images []domain.ProjectImage) []domain.ProjectImage {
	out := slices.Clone(images)
	for i := range out {
		out[i].URL = strings.TrimSpace(out[i].URL)
		out[i].Alt = strings.TrimSpace(out[i].Alt)
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
