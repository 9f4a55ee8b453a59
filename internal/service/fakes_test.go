package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/travelos/crm/internal/domain"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository. Stateful on purpose: the
// lockout scenarios need the counter to accumulate across calls.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email && user.DeletedAt == nil {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) IncrementFailedLogins(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	user.FailedLoginAttempts++
	return user.FailedLoginAttempts, nil
}

func (f *fakeUserRepo) LockAccount(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	lockUntil := until
	user.LockUntil = &lockUntil
	return nil
}

func (f *fakeUserRepo) ResetLoginState(_ context.Context, id string, lastLogin time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	loginAt := lastLogin
	user.LastLoginAt = &loginAt
	return nil
}

// fakeAgencyRepo serves a fixed set of agencies.
type fakeAgencyRepo struct {
	agencies map[string]*domain.Agency
}

func newFakeAgencyRepo(agencies ...*domain.Agency) *fakeAgencyRepo {
	repo := &fakeAgencyRepo{agencies: make(map[string]*domain.Agency)}
	for _, a := range agencies {
		repo.agencies[a.ID] = a
	}
	return repo
}

func (f *fakeAgencyRepo) GetByID(_ context.Context, id string) (*domain.Agency, error) {
	agency, ok := f.agencies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *agency
	return &copied, nil
}

// fakeSessionStore mimics the Postgres session repository, including the
// conditional-revoke race guard.
type fakeSessionStore struct {
	mu       sync.Mutex
	byHash   map[string]*domain.Session
	byID     map[string]*domain.Session
	revokes  int
	families map[string]int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		byHash:   make(map[string]*domain.Session),
		byID:     make(map[string]*domain.Session),
		families: make(map[string]int),
	}
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.byHash[session.HashedToken] = &copied
	f.byID[session.ID] = &copied
	f.families[session.FamilyID]++
	return nil
}

func (f *fakeSessionStore) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.byHash[hash]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) RevokeAndReplace(_ context.Context, oldID string, next *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.byID[oldID]
	if !ok || old.Revoked {
		return repository.ErrAlreadyRevoked
	}
	old.Revoked = true
	copied := *next
	f.byHash[next.HashedToken] = &copied
	f.byID[next.ID] = &copied
	f.families[next.FamilyID]++
	return nil
}

func (f *fakeSessionStore) RevokeFamily(_ context.Context, familyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.byID {
		if session.FamilyID == familyID {
			session.Revoked = true
			f.revokes++
		}
	}
	return nil
}

func (f *fakeSessionStore) RevokeByTokenHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session, ok := f.byHash[hash]; ok {
		session.Revoked = true
	}
	return nil
}

func (f *fakeSessionStore) activeInFamily(familyID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := 0
	for _, session := range f.byID {
		if session.FamilyID == familyID && !session.Revoked {
			active++
		}
	}
	return active
}

// fakeAuditRepo records appended entries.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (f *fakeAuditRepo) Append(_ context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

// recordingDispatcher captures published events without handlers.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type)
	}
	return types
}
