package accounts_test

import (
	"context"
	"sort"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/queue"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

func notFoundErr(msg string) error {
	return errors.New(msg, errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

// memUserStore implements accounts.UserStore in memory.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*accounts.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uuid.UUID]*accounts.User{}}
}

func (s *memUserStore) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, errors.New("email already exists", errors.CategoryConflict).
				WithCode(errors.CodeConflict).
				WithTextCode(accounts.TextCodeDuplicateUser)
		}
	}

	// mint ids the way the real store does so tests see the same
	// UUID version production users carry
	if user.ID == uuid.Nil {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		} else {
			user.ID = uuid.New()
		}
	}

	clone := *user
	s.users[user.ID] = &clone

	return user, nil
}

func (s *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, notFoundErr("user not found")
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, notFoundErr("user not found")
}

func (s *memUserStore) GetByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == identifier || user.Username == identifier {
			clone := *user
			return &clone, nil
		}
	}
	return nil, notFoundErr("user not found")
}

func (s *memUserStore) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return notFoundErr("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *memUserStore) SetVerificationCode(ctx context.Context, id uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return notFoundErr("user not found")
	}
	user.VerificationCode = code
	return nil
}

func (s *memUserStore) UpdateVerificationState(ctx context.Context, id uuid.UUID, verified bool) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, notFoundErr("user not found")
	}

	user.Verified = verified
	if verified {
		now := time.Now()
		user.VerifiedAt = &now
	} else {
		user.VerifiedAt = nil
	}

	clone := *user
	return &clone, nil
}

func (s *memUserStore) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return notFoundErr("user not found")
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func (s *memUserStore) List(ctx context.Context, page, limit int) ([]*accounts.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 25
	}

	all := make([]*accounts.User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	start := page * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], len(all), nil
}

// memSessionStore implements accounts.SessionStore in memory, one row per
// user like the real table.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*accounts.Session
	errOnce  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[uuid.UUID]*accounts.Session{}}
}

func (s *memSessionStore) ReplaceForUser(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.errOnce != nil {
		err := s.errOnce
		s.errOnce = nil
		return err
	}

	now := time.Now()
	s.sessions[userID] = &accounts.Session{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		CreatedAt: &now,
	}
	return nil
}

func (s *memSessionStore) GetByToken(ctx context.Context, token string) (*accounts.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.Token == token {
			clone := *session
			return &clone, nil
		}
	}
	return nil, notFoundErr("session not found")
}

func (s *memSessionStore) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; ok {
		return 1, nil
	}
	return 0, nil
}

// captureEnqueuer records every job handed to it, optionally failing.
type captureEnqueuer struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (e *captureEnqueuer) Enqueue(ctx context.Context, job queue.Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func (e *captureEnqueuer) captured() []queue.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]queue.Job(nil), e.jobs...)
}

// stubTokenIssuer implements accounts.TokenIssuer with canned responses.
type stubTokenIssuer struct {
	sessionToken string
	sessionErr   error
	resetToken   string
	resetErr     error
	resetEmail   string
	verifyErr    error
	code         string
}

func (s *stubTokenIssuer) IssueSessionToken(ctx context.Context, claims accounts.SessionClaims) (string, error) {
	return s.sessionToken, s.sessionErr
}

func (s *stubTokenIssuer) IssuePasswordResetToken(email string) (string, error) {
	return s.resetToken, s.resetErr
}

func (s *stubTokenIssuer) VerifyPasswordResetToken(token string) (string, error) {
	return s.resetEmail, s.verifyErr
}

func (s *stubTokenIssuer) IssueVerificationCode() string {
	if s.code != "" {
		return s.code
	}
	return "00112233445566778899"
}
