package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	findByExternalIDFn  func(ctx context.Context, provider, subject string) (*model.User, error)
	findByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	findByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	usernameExistsFn    func(ctx context.Context, username string) (bool, error)
	createFn            func(ctx context.Context, user *model.User) error
	linkExternalIDFn    func(ctx context.Context, userID string, ext model.ExternalID) error
	markEmailVerifiedFn func(ctx context.Context, userID string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByExternalID(ctx context.Context, provider, subject string) (*model.User, error) {
	if m.findByExternalIDFn != nil {
		return m.findByExternalIDFn(ctx, provider, subject)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) LinkExternalID(ctx context.Context, userID string, ext model.ExternalID) error {
	if m.linkExternalIDFn != nil {
		return m.linkExternalIDFn(ctx, userID, ext)
	}
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	if m.markEmailVerifiedFn != nil {
		return m.markEmailVerifiedFn(ctx, userID)
	}
	return nil
}

type mockVerifier struct {
	verifyFn func(ctx context.Context, idToken string) (*Assertion, error)
}

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (*Assertion, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, idToken)
	}
	return nil, ErrInvalidAssertion
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*Assertion, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*Assertion, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, ErrInvalidAssertion
}

type mockMailer struct {
	sendFn func(ctx context.Context, to, username, link string) error
}

func (m *mockMailer) SendVerification(ctx context.Context, to, username, link string) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, to, username, link)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ AssertionVerifier = (*mockVerifier)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ Mailer = (*mockMailer)(nil)

// memUsers はmockUserRepoの関数フィールドをメモリ上のユーザー一覧で埋める。
// 一意制約はリポジトリ実装と同じく DuplicateKeyError で返す。
type memUsers struct {
	mu    sync.Mutex
	users []*model.User
}

func newMemUsers(seed ...*model.User) (*memUsers, *mockUserRepo) {
	s := &memUsers{users: seed}
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return s.find(func(u *model.User) bool { return u.ID == id }), nil
		},
		findByExternalIDFn: func(_ context.Context, provider, subject string) (*model.User, error) {
			return s.find(func(u *model.User) bool { return u.HasExternalID(provider, subject) }), nil
		},
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return s.find(func(u *model.User) bool { return email != "" && u.Email == email }), nil
		},
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			return s.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) }), nil
		},
		usernameExistsFn: func(_ context.Context, username string) (bool, error) {
			return s.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) }) != nil, nil
		},
		createFn: func(_ context.Context, user *model.User) error {
			return s.create(user)
		},
		linkExternalIDFn: func(_ context.Context, userID string, ext model.ExternalID) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, u := range s.users {
				if u.HasExternalID(ext.Provider, ext.Subject) {
					return &repository.DuplicateKeyError{Key: repository.KeyExternalID}
				}
			}
			for _, u := range s.users {
				if u.ID == userID {
					u.ExternalIDs = append(u.ExternalIDs, ext)
				}
			}
			return nil
		},
		markEmailVerifiedFn: func(_ context.Context, userID string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, u := range s.users {
				if u.ID == userID {
					u.EmailVerified = true
				}
			}
			return nil
		},
	}
	return s, repo
}

// find は一致したユーザーのコピーを返す。
func (s *memUsers) find(match func(u *model.User) bool) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			cp.ExternalIDs = append([]model.ExternalID(nil), u.ExternalIDs...)
			return &cp
		}
	}
	return nil
}

func (s *memUsers) create(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return &repository.DuplicateKeyError{Key: repository.KeyUsername}
		}
		if user.Email != "" && u.Email == user.Email {
			return &repository.DuplicateKeyError{Key: repository.KeyEmail}
		}
		for _, ext := range user.ExternalIDs {
			if u.HasExternalID(ext.Provider, ext.Subject) {
				return &repository.DuplicateKeyError{Key: repository.KeyExternalID}
			}
		}
	}
	cp := *user
	cp.ExternalIDs = append([]model.ExternalID(nil), user.ExternalIDs...)
	s.users = append(s.users, &cp)
	return nil
}

func (s *memUsers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
