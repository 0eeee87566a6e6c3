package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
)

const createContactsTable = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	project_type TEXT NOT NULL DEFAULT '',
	budget TEXT NOT NULL DEFAULT '',
	timeline TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'new',
	notes TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contacts_email_created ON contacts(email, created_at);
CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(status);
`

const selectContact = `
SELECT id, name, email, company, project_type, budget, timeline, message, status, notes, ip_address, user_agent, created_at, updated_at
FROM contacts`

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) repository.ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createContactsTable); err != nil {
		return fmt.Errorf("create contacts table: %w", err)
	}
	return nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	if contact.Status == "" {
		contact.Status = domain.ContactStatusNew
	}
	contact.Email = strings.ToLower(contact.Email)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO contacts (id, name, email, company, project_type, budget, timeline, message, status, notes, ip_address, user_agent, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Company,
		contact.ProjectType,
		contact.Budget,
		contact.Timeline,
		contact.Message,
		string(contact.Status),
		contact.Notes,
		contact.IPAddress,
		contact.UserAgent,
		contact.CreatedAt.UTC(),
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return scanContact(r.db.QueryRowContext(ctx, selectContact+`
WHERE id=?`, id))
}

func (r *ContactRepository) ExistsSince(ctx context.Context, email string, since time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM contacts WHERE email=? AND created_at >= ?`,
		strings.ToLower(email),
		since.UTC(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count recent contacts: %w", err)
	}
	return n > 0, nil
}

func (r *ContactRepository) List(ctx context.Context, filter domain.ContactFilter) ([]domain.Contact, int, error) {
	var (
		where string
		args  []any
	)
	if filter.Status != "" {
		where = ` WHERE status=?`
		args = append(args, string(filter.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM contacts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	query := selectContact + where + `
ORDER BY created_at DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, total, rows.Err()
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus, notes *string) (*domain.Contact, error) {
	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if notes != nil {
		res, err = r.db.ExecContext(ctx, `
UPDATE contacts SET status=?, notes=?, updated_at=? WHERE id=?`,
			string(status), *notes, now, id)
	} else {
		res, err = r.db.ExecContext(ctx, `
UPDATE contacts SET status=?, updated_at=? WHERE id=?`,
			string(status), now, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update contact status: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("contact update rows affected: %w", err)
	}
	if aff == 0 {
		return nil, fmt.Errorf("contact %s: %w", id, repository.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *ContactRepository) CountByStatus(ctx context.Context) (map[domain.ContactStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM contacts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("group contacts by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.ContactStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.ContactStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *ContactRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM contacts WHERE created_at >= ?`, since.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts since: %w", err)
	}
	return n, nil
}

func scanContact(row interface {
	Scan(dest ...any) error
}) (*domain.Contact, error) {
	var (
		contact domain.Contact
		status  string
	)
	if err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Company,
		&contact.ProjectType,
		&contact.Budget,
		&contact.Timeline,
		&contact.Message,
		&status,
		&contact.Notes,
		&contact.IPAddress,
		&contact.UserAgent,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	contact.Status = domain.ContactStatus(status)
	contact.CreatedAt = contact.CreatedAt.UTC()
	contact.UpdatedAt = contact.UpdatedAt.UTC()
	return &contact, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}
