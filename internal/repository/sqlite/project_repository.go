package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
)

const (
	createProjectsTable = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	long_description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	technologies TEXT NOT NULL DEFAULT '[]',
	features TEXT NOT NULL DEFAULT '[]',
	links TEXT NOT NULL DEFAULT '{}',
	client TEXT NOT NULL DEFAULT '{}',
	metrics TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'draft',
	featured INTEGER NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
`
	selectProject = `
SELECT id, title, description, long_description, category, technologies, features, links, client, metrics, status, featured, sort_order, created_at, updated_at
FROM projects`
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) repository.ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProjectsTable); err != nil {
		return fmt.Errorf("create projects table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createProjectImagesTable); err != nil {
		return fmt.Errorf("create project_images table: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	cols, err := encodeProjectColumns(project)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO projects (id, title, description, long_description, category, technologies, features, links, client, metrics, status, featured, sort_order, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Title,
		project.Description,
		project.LongDescription,
		project.Category,
		cols.technologies,
		cols.features,
		cols.links,
		cols.client,
		cols.metrics,
		string(project.Status),
		project.Featured,
		project.Order,
		project.CreatedAt,
		project.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	if err := replaceProjectImages(ctx, tx, project.ID, project.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project create: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	project.UpdatedAt = time.Now().UTC()

	cols, err := encodeProjectColumns(project)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE projects
SET title=?, description=?, long_description=?, category=?, technologies=?, features=?, links=?, client=?, metrics=?, status=?, featured=?, sort_order=?, updated_at=?
WHERE id=?`,
		project.Title,
		project.Description,
		project.LongDescription,
		project.Category,
		cols.technologies,
		cols.features,
		cols.links,
		cols.client,
		cols.metrics,
		string(project.Status),
		project.Featured,
		project.Order,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("project update rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("project %s: %w", project.ID, repository.ErrNotFound)
	}

	if err := replaceProjectImages(ctx, tx, project.ID, project.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project update: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_images WHERE project_id=?`, id); err != nil {
		return fmt.Errorf("delete project images: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("project delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("project %s: %w", id, repository.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project delete: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := scanProject(r.db.QueryRowContext(ctx, selectProject+`
WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	images, err := listProjectImages(ctx, r.db, project.ID)
	if err != nil {
		return nil, err
	}
	project.Images = images
	return project, nil
}

func (r *ProjectRepository) List(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	where, args := projectWhere(filter)
	query := selectProject + where + `
ORDER BY featured DESC, sort_order ASC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *ProjectRepository) ListPaged(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, int, error) {
	where, args := projectWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	query := selectProject + where + `
ORDER BY created_at DESC
LIMIT ? OFFSET ?`
	projects, err := r.query(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *ProjectRepository) CountByCategory(ctx context.Context, statuses ...domain.ProjectStatus) ([]domain.CategoryCount, error) {
	where, args := projectWhere(domain.ProjectFilter{Statuses: statuses})
	rows, err := r.db.QueryContext(ctx, `
SELECT category, COUNT(1) FROM projects`+where+`
GROUP BY category
ORDER BY category ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("group projects by category: %w", err)
	}
	defer rows.Close()

	counts := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *ProjectRepository) query(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	projects := []domain.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before loading images
	rows.Close()

	for i := range projects {
		images, err := listProjectImages(ctx, r.db, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Images = images
	}
	return projects, nil
}

func projectWhere(filter domain.ProjectFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", placeholders(len(filter.Statuses))))
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.Category != "" && filter.Category != domain.CategoryAll {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.FeaturedOnly {
		clauses = append(clauses, "featured = 1")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type projectColumns struct {
	technologies string
	features     string
	links        string
	client       string
	metrics      string
}

func encodeProjectColumns(p *domain.Project) (projectColumns, error) {
	var cols projectColumns
	for _, f := range []struct {
		dst *string
		src any
		key string
	}{
		{&cols.technologies, nonNilStrings(p.Technologies), "technologies"},
		{&cols.features, nonNilStrings(p.Features), "features"},
		{&cols.links, p.Links, "links"},
		{&cols.client, p.Client, "client"},
		{&cols.metrics, p.Metrics, "metrics"},
	} {
		b, err := json.Marshal(f.src)
		if err != nil {
			return projectColumns{}, fmt.Errorf("encode project %s: %w", f.key, err)
		}
		*f.dst = string(b)
	}
	return cols, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func scanProject(row interface {
	Scan(dest ...any) error
}) (*domain.Project, error) {
	var (
		project domain.Project
		status  string
		cols    projectColumns
	)
	if err := row.Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.LongDescription,
		&project.Category,
		&cols.technologies,
		&cols.features,
		&cols.links,
		&cols.client,
		&cols.metrics,
		&status,
		&project.Featured,
		&project.Order,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	for _, f := range []struct {
		src string
		dst any
		key string
	}{
		{cols.technologies, &project.Technologies, "technologies"},
		{cols.features, &project.Features, "features"},
		{cols.links, &project.Links, "links"},
		{cols.client, &project.Client, "client"},
		{cols.metrics, &project.Metrics, "metrics"},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", f.key, err)
		}
	}

	project.Status = domain.ProjectStatus(status)
	project.CreatedAt = project.CreatedAt.UTC()
	project.UpdatedAt = project.UpdatedAt.UTC()
	return &project, nil
}
