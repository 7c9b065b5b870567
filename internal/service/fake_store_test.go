package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/store"
)

// fakeStore is an in-memory store.Store that counts lookups so tests can
// assert whether the cache or the database served a request.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]domain.User // keyed by email

	getByEmailCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]domain.User)}
}

func (f *fakeStore) Users() store.Users             { return f }
func (f *fakeStore) ApplyMigrations() error         { return nil }
func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func (f *fakeStore) emailLookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getByEmailCalls
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByEmailCalls++
	u, ok := f.users[email]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return store.ErrAlreadyExists
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	f.users[u.Email] = u
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) mutate(id string, fn func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.ID == id {
			fn(&u)
			u.UpdatedAt = time.Now().UTC()
			f.users[email] = u
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	return f.mutate(userID, func(u *domain.User) { u.RefreshToken = token })
}

func (f *fakeStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return f.mutate(userID, func(u *domain.User) { u.PasswordHash = newHash })
}

func (f *fakeStore) UpdateFullName(ctx context.Context, userID, fullName string) error {
	return f.mutate(userID, func(u *domain.User) { u.FullName = fullName })
}

func (f *fakeStore) SetActive(ctx context.Context, userID string, active bool) error {
	return f.mutate(userID, func(u *domain.User) { u.Active = active })
}

func (f *fakeStore) MarkEmailConfirmed(ctx context.Context, userID string) error {
	return f.mutate(userID, func(u *domain.User) { u.EmailConfirmed = true })
}

func (f *fakeStore) IsEmpty(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users) == 0, nil
}
