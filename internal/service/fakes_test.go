package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bureau-engine/internal/auth"
	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
	"bureau-engine/internal/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingHasher records how often stored hashes are consulted.
type countingHasher struct {
	inner    *auth.BcryptHasher
	verifies atomic.Int64
	// onVerify runs after each comparison, outside any store lock.
	onVerify func()
}

func newCountingHasher() *countingHasher {
	return &countingHasher{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
}

func (h *countingHasher) Hash(plain string) (string, error) { return h.inner.Hash(plain) }

func (h *countingHasher) Verify(hash, plain string) (bool, error) {
	h.verifies.Add(1)
	ok, err := h.inner.Verify(hash, plain)
	if h.onVerify != nil {
		h.onVerify()
	}
	return ok, err
}

type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[string]domain.Account
	updates int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]domain.Account{}}
}

func (f *fakeAccounts) Init(context.Context) error { return nil }

func (f *fakeAccounts) Create(_ context.Context, a *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Username == a.Username || existing.Email == strings.ToLower(a.Email) {
			return repository.ErrAlreadyExists
		}
	}
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAccounts) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Username == identifier || a.Email == strings.ToLower(identifier) {
			cp := a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f *fakeAccounts) Update(_ context.Context, id string, mutate repository.AccountMutation) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := mutate(&a); err != nil {
		return nil, err
	}
	f.byID[id] = a
	f.updates++
	return &a, nil
}

func (f *fakeAccounts) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Username == username || a.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) get(id string) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeAccounts) put(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
}

func (f *fakeAccounts) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

type fakeContacts struct {
	mu       sync.Mutex
	contacts []domain.Contact
}

func (f *fakeContacts) Init(context.Context) error { return nil }

func (f *fakeContacts) Create(_ context.Context, c *domain.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.UpdatedAt = c.CreatedAt
	f.contacts = append(f.contacts, *c)
	return nil
}

func (f *fakeContacts) Get(_ context.Context, id string) (*domain.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContacts) ExistsSince(_ context.Context, email string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts {
		if c.Email == email && !c.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContacts) List(_ context.Context, filter domain.ContactFilter) ([]domain.Contact, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Contact
	for _, c := range f.contacts {
		if filter.Status == "" || c.Status == filter.Status {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return slices.Clone(out[start:end]), total, nil
}

func (f *fakeContacts) UpdateStatus(_ context.Context, id string, status domain.ContactStatus, notes *string) (*domain.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contacts {
		if f.contacts[i].ID == id {
			f.contacts[i].Status = status
			if notes != nil {
				f.contacts[i].Notes = *notes
			}
			c := f.contacts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("contact %s: %w", id, repository.ErrNotFound)
}

func (f *fakeContacts) CountByStatus(context.Context) (map[domain.ContactStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[domain.ContactStatus]int{}
	for _, c := range f.contacts {
		counts[c.Status]++
	}
	return counts, nil
}

func (f *fakeContacts) CountSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.contacts {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeProjects struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	seq      int
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: map[string]domain.Project{}}
}

func (f *fakeProjects) Init(context.Context) error { return nil }

func (f *fakeProjects) Create(_ context.Context, p *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	f.projects[p.ID] = *p
	return nil
}

func (f *fakeProjects) Update(_ context.Context, p *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.projects[p.ID] = *p
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, repository.ErrNotFound)
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeProjects) Get(_ context.Context, id string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProjects) match(filter domain.ProjectFilter) []domain.Project {
	var out []domain.Project
	for _, p := range f.projects {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, p.Status) {
			continue
		}
		if filter.Category != "" && filter.Category != domain.CategoryAll && p.Category != filter.Category {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (f *fakeProjects) List(_ context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.match(filter)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeProjects) ListPaged(_ context.Context, filter domain.ProjectFilter) ([]domain.Project, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.match(filter)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

func (f *fakeProjects) CountByCategory(_ context.Context, statuses ...domain.ProjectStatus) ([]domain.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, p := range f.match(domain.ProjectFilter{Statuses: statuses}) {
		counts[p.Category]++
	}
	out := []domain.CategoryCount{}
	for cat, n := range counts {
		out = append(out, domain.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	contacts []domain.Contact
	projects []domain.Project
	err      error
}

func (n *recordingNotifier) ContactSubmitted(_ context.Context, c domain.Contact) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, c)
	return n.err
}

func (n *recordingNotifier) ProjectCreated(_ context.Context, p domain.Project) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.projects = append(n.projects, p)
	return n.err
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   map[string]storage.UploadOptions
	deleted   []string
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string]storage.UploadOptions{}}
}

func (s *fakeStorage) Upload(_ context.Context, key string, body io.Reader, opts storage.UploadOptions) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = opts
	return "https://cdn.example.com/" + key, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.ObjectInfo
	for key := range s.uploads {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key})
		}
	}
	return out, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, prefix)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for key := range s.uploads {
		if strings.HasPrefix(key, prefix) {
			delete(s.uploads, key)
		}
	}
	return nil
}

func (s *fakeStorage) GetObjectURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

var errBoom = errors.New("boom")
