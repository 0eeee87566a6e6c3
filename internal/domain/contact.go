package domain

import "time"

type ContactStatus string

const (
	ContactStatusNew        ContactStatus = "new"
	ContactStatusContacted  ContactStatus = "contacted"
	ContactStatusInProgress ContactStatus = "in-progress"
	ContactStatusConverted  ContactStatus = "converted"
	ContactStatusClosed     ContactStatus = "closed"
)

// Valid reports whether s is a known contact status.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusContacted, ContactStatusInProgress, ContactStatusConverted, ContactStatusClosed:
		return true
	}
	return false
}

// Contact is a project inquiry submitted through the public contact form.
type Contact struct {
	ID          string
	Name        string
	Email       string
	Company     string
	ProjectType string
	Budget      string
	Timeline    string
	Message     string
	Status      ContactStatus
	Notes       string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContactFilter narrows and paginates contact listings.
type ContactFilter struct {
	Status ContactStatus
	Page   int
	Limit  int
}

// ContactStats summarizes inquiries for the admin dashboard.
type ContactStats struct {
	Total     int
	ThisMonth int
	ByStatus  map[ContactStatus]int
}

// Pagination describes the window returned by a paged listing.
type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// NewPagination computes the page count for total items.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
