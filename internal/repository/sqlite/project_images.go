package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"bureau-engine/internal/domain"
)

const createProjectImagesTable = `
CREATE TABLE IF NOT EXISTS project_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	url TEXT NOT NULL,
	alt TEXT NOT NULL DEFAULT '',
	is_primary INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_project_images_project_id ON project_images(project_id);
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func replaceProjectImages(ctx context.Context, tx execer, projectID string, images []domain.ProjectImage) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_images WHERE project_id=?`, projectID); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}

	for i, img := range images {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO project_images (project_id, url, alt, is_primary, position)
VALUES (?, ?, ?, ?, ?)`,
			projectID,
			img.URL,
			img.Alt,
			img.IsPrimary,
			i,
		); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}
	return nil
}

func listProjectImages(ctx context.Context, db querier, projectID string) ([]domain.ProjectImage, error) {
	rows, err := db.QueryContext(ctx, `
SELECT url, alt, is_primary
FROM project_images
WHERE project_id=?
ORDER BY position ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProjectImage{}
	for rows.Next() {
		var img domain.ProjectImage
		if err := rows.Scan(&img.URL, &img.Alt, &img.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
