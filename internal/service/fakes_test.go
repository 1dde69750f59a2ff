package service

import (
	"context"
	"sync"
	"time"

	"github.com/bookhub/backend/internal/model"
	"github.com/bookhub/backend/internal/repository"
	"gorm.io/gorm"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.User
	writes int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{rows: make(map[uint]*model.User)}
}

func (m *memoryUsers) find(match func(u *model.User) bool) *model.User {
	for _, u := range m.rows {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *model.User) bool { return u.ID == id }), nil
}

func (m *memoryUsers) GetByGithubID(_ context.Context, githubID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *model.User) bool { return u.GithubID != nil && *u.GithubID == githubID }), nil
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := m.GetByEmail(ctx, email)
	return u != nil, nil
}

func (m *memoryUsers) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(func(u *model.User) bool { return u.Email == user.Email }) != nil {
		return repository.ErrDuplicate
	}
	if user.GithubID != nil && m.find(func(u *model.User) bool { return u.GithubID != nil && *u.GithubID == *user.GithubID }) != nil {
		return repository.ErrDuplicate
	}
	m.nextID++
	user.ID = m.nextID
	c := *user
	m.rows[c.ID] = &c
	m.writes++
	return nil
}

func (m *memoryUsers) update(id uint, apply func(u *model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	apply(u)
	m.writes++
	return nil
}

func (m *memoryUsers) UpdateNames(_ context.Context, id uint, firstName, lastName string) error {
	return m.update(id, func(u *model.User) { u.FirstName, u.LastName = firstName, lastName })
}

func (m *memoryUsers) UpdateEmail(_ context.Context, id uint, email string) error {
	m.mu.Lock()
	clash := m.find(func(u *model.User) bool { return u.Email == email && u.ID != id })
	m.mu.Unlock()
	if clash != nil {
		return repository.ErrDuplicate
	}
	return m.update(id, func(u *model.User) { u.Email = email })
}

func (m *memoryUsers) LinkGithubID(_ context.Context, id uint, githubID string) error {
	return m.update(id, func(u *model.User) { u.GithubID = &githubID })
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memoryUsers) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// memoryLedger keys rows by user id, mirroring the unique user_id index.
type memoryLedger struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.RefreshToken
	writes int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[uint]*model.RefreshToken)}
}

func (l *memoryLedger) UpsertForAccount(_ context.Context, userID uint, value string, expiresAt time.Time) (*model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[userID]
	if !ok {
		l.nextID++
		row = &model.RefreshToken{ID: l.nextID, UserID: userID}
		l.rows[userID] = row
	}
	row.Token = value
	row.ExpiryDate = expiresAt
	l.writes++
	c := *row
	return &c, nil
}

func (l *memoryLedger) FindByValue(_ context.Context, value string) (*model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, row := range l.rows {
		if row.Token == value {
			c := *row
			return &c, nil
		}
	}
	return nil, nil
}

func (l *memoryLedger) Delete(_ context.Context, token *model.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[token.UserID]; ok && row.Token == token.Token {
		delete(l.rows, token.UserID)
		l.writes++
	}
	return nil
}

func (l *memoryLedger) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for id, row := range l.rows {
		if row.IsExpired(now) {
			delete(l.rows, id)
			n++
		}
	}
	return n, nil
}

func (l *memoryLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func (l *memoryLedger) writeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

type countingRecorder struct {
	mu     sync.Mutex
	events map[string]int
}

func (r *countingRecorder) RecordAuth(action string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	key := action + ":fail"
	if success {
		key = action + ":ok"
	}
	r.events[key]++
}
