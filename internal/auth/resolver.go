package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
)

// maxResolveAttempts は一意制約違反による再試行を含めた解決処理の上限。
const maxResolveAttempts = 3

// Assertion はIdPで検証済みの本人情報を表す。
type Assertion struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	// DisplayName が空でなければユーザー名の候補元に使う。空の場合はメールのローカル部。
	DisplayName string
}

func (a Assertion) usernameSeed() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return EmailLocalPart(model.NormalizeEmail(a.Email))
}

// ResolveResult は解決結果のユーザーと、新規作成したかどうかを表す。
type ResolveResult struct {
	User    *model.User
	Created bool
}

// Resolver は検証済みの外部IDをローカルユーザーに対応付ける。
type Resolver struct {
	users     repository.UserRepository
	allocator *UsernameAllocator
	now       func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository, allocator *UsernameAllocator) *Resolver {
	return &Resolver{users: users, allocator: allocator, now: time.Now}
}

// Resolve は (provider, subject) に対応するユーザーを返す。
// 未登録の場合は同じメールアドレスのユーザーに外部IDを紐付け、
// それもなければユーザーを新規作成する。
// 同時リクエストによる一意制約違反は最初から解決し直す。
func (r *Resolver) Resolve(ctx context.Context, a Assertion, suggestedUsername string) (*ResolveResult, error) {
	if a.Provider == "" || a.Subject == "" || a.Email == "" {
		return nil, ErrIncompleteIdentity
	}
	email := model.NormalizeEmail(a.Email)
	ext := model.ExternalID{Provider: a.Provider, Subject: a.Subject}

	var lastErr error
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		user, err := r.users.FindByExternalID(ctx, a.Provider, a.Subject)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by external id: %w", err)
		}
		if user != nil {
			return &ResolveResult{User: user}, nil
		}

		user, err = r.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			if err := r.users.LinkExternalID(ctx, user.ID, ext); err != nil {
				if errors.Is(err, repository.ErrDuplicateKey) {
					lastErr = err
					continue
				}
				return nil, fmt.Errorf("failed to link external id: %w", err)
			}
			user.ExternalIDs = append(user.ExternalIDs, ext)
			slog.Info("external identity linked",
				slog.String("user_id", user.ID),
				slog.String("provider", a.Provider),
			)
			return &ResolveResult{User: user}, nil
		}

		username, err := r.pickUsername(ctx, a, suggestedUsername)
		if err != nil {
			return nil, err
		}

		now := r.now()
		user = &model.User{
			ID:            uuid.New().String(),
			Username:      username,
			Email:         email,
			EmailVerified: a.EmailVerified,
			ExternalIDs:   []model.ExternalID{ext},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = r.users.Create(ctx, user)
		if err == nil {
			slog.Info("new user created",
				slog.String("user_id", user.ID),
				slog.String("username", user.Username),
				slog.String("provider", a.Provider),
			)
			return &ResolveResult{User: user, Created: true}, nil
		}

		key, ok := repository.DuplicateKeyOf(err)
		if !ok {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		if key == repository.KeyUsername && suggestedUsername != "" {
			return nil, ErrUsernameTaken
		}
		slog.Warn("duplicate key while resolving identity, retrying",
			slog.String("key", key),
			slog.String("provider", a.Provider),
			slog.Int("attempt", attempt+1),
		)
		lastErr = err
	}

	return nil, fmt.Errorf("failed to resolve identity after %d attempts: %w", maxResolveAttempts, lastErr)
}

// pickUsername は新規作成時のユーザー名を決める。
// 指定がある場合は形式と使用状況を検証し、ない場合は自動割り当てする。
func (r *Resolver) pickUsername(ctx context.Context, a Assertion, suggested string) (string, error) {
	if suggested == "" {
		return r.allocator.Allocate(ctx, a.usernameSeed())
	}

	if err := ValidateUsername(suggested); err != nil {
		return "", err
	}
	exists, err := r.users.UsernameExists(ctx, suggested)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return "", ErrUsernameTaken
	}
	return suggested, nil
}
