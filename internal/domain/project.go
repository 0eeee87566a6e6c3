package domain

import "time"

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusDraft     ProjectStatus = "draft"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived, ProjectStatusDraft:
		return true
	}
	return false
}

// Public reports whether projects in this status are shown on the website.
func (s ProjectStatus) Public() bool {
	return s == ProjectStatusActive || s == ProjectStatusCompleted
}

// PublicProjectStatuses lists the statuses visible to anonymous visitors.
var PublicProjectStatuses = []ProjectStatus{ProjectStatusActive, ProjectStatusCompleted}

// ProjectCategories is the fixed set of portfolio categories.
var ProjectCategories = []string{"Full-Stack", "Frontend", "Backend", "Mobile", "Design"}

// CategoryAll is the pseudo category that disables category filtering.
const CategoryAll = "All"

// Project is a portfolio entry.
type Project struct {
	ID              string
	Title           string
	Description     string
	LongDescription string
	Category        string
	Technologies    []string
	Features        []string
	Images          []ProjectImage
	Links           ProjectLinks
	Client          ProjectClient
	Metrics         ProjectMetrics
	Status          ProjectStatus
	Featured        bool
	Order           int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ProjectImage struct {
	URL       string `json:"url" validate:"required,url"`
	Alt       string `json:"alt" validate:"required"`
	IsPrimary bool   `json:"isPrimary"`
}

type ProjectLinks struct {
	Live      string `json:"live,omitempty" validate:"omitempty,url"`
	GitHub    string `json:"github,omitempty" validate:"omitempty,url"`
	CaseStudy string `json:"caseStudy,omitempty" validate:"omitempty,url"`
}

type ProjectClient struct {
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
}

type ProjectMetrics struct {
	Duration string `json:"duration,omitempty"`
	TeamSize int    `json:"teamSize,omitempty" validate:"gte=0"`
	Impact   string `json:"impact,omitempty"`
}

// ProjectFilter narrows project listings. Zero values mean "no filter".
type ProjectFilter struct {
	Statuses     []ProjectStatus
	Category     string
	FeaturedOnly bool
	Page         int
	Limit        int
}

// CategoryCount is the number of public projects in a category.
type CategoryCount struct {
	Category string
	Count    int
}
