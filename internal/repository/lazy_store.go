package repository

import (
	"context"

	"github.com/hitoshi/mathlovers/internal/model"
)

// StoreLoader は接続済みのStoreを返す。
// database.Lazy[*Store].Get を渡すことを想定している。
type StoreLoader func(ctx context.Context) (*Store, error)

// NewLazyStore は各リポジトリ呼び出しの時点でloadを呼び出すStoreを生成する。
// 接続はloadの実装に任せるため、起動時にデータストアが落ちていてもサーバーは起動できる。
func NewLazyStore(load StoreLoader) *Store {
	return &Store{
		Users:     lazyUsers{load},
		Questions: lazyQuestions{load},
		Answers:   lazyAnswers{load},
		Likes:     lazyLikes{load},
		Rankings:  lazyRankings{load},
		Pinger:    lazyPinger{load},
	}
}

type lazyUsers struct{ load StoreLoader }

func (l lazyUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Users.FindByID(ctx, id)
}

func (l lazyUsers) FindByExternalID(ctx context.Context, provider, subject string) (*model.User, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Users.FindByExternalID(ctx, provider, subject)
}

func (l lazyUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Users.FindByEmail(ctx, email)
}

func (l lazyUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Users.FindByUsername(ctx, username)
}

func (l lazyUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	s, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	return s.Users.UsernameExists(ctx, username)
}

func (l lazyUsers) Create(ctx context.Context, user *model.User) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Users.Create(ctx, user)
}

func (l lazyUsers) LinkExternalID(ctx context.Context, userID string, ext model.ExternalID) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Users.LinkExternalID(ctx, userID, ext)
}

func (l lazyUsers) MarkEmailVerified(ctx context.Context, userID string) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Users.MarkEmailVerified(ctx, userID)
}

type lazyQuestions struct{ load StoreLoader }

func (l lazyQuestions) List(ctx context.Context) ([]model.QuestionWithAuthor, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Questions.List(ctx)
}

func (l lazyQuestions) FindByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Questions.FindByID(ctx, id)
}

func (l lazyQuestions) Create(ctx context.Context, q *model.Question) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Questions.Create(ctx, q)
}

func (l lazyQuestions) Delete(ctx context.Context, id string) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Questions.Delete(ctx, id)
}

type lazyAnswers struct{ load StoreLoader }

func (l lazyAnswers) ListByQuestion(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Answers.ListByQuestion(ctx, questionID)
}

func (l lazyAnswers) FindByID(ctx context.Context, id string) (*model.Answer, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Answers.FindByID(ctx, id)
}

func (l lazyAnswers) Create(ctx context.Context, a *model.Answer) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Answers.Create(ctx, a)
}

func (l lazyAnswers) Delete(ctx context.Context, id string) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Answers.Delete(ctx, id)
}

func (l lazyAnswers) DeleteOrphaned(ctx context.Context) (int64, error) {
	s, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.Answers.DeleteOrphaned(ctx)
}

type lazyLikes struct{ load StoreLoader }

func (l lazyLikes) Toggle(ctx context.Context, target model.LikeTarget, targetID, userID string) (*model.LikeResult, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Likes.Toggle(ctx, target, targetID, userID)
}

func (l lazyLikes) DeleteOrphaned(ctx context.Context) (int64, error) {
	s, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.Likes.DeleteOrphaned(ctx)
}

type lazyRankings struct{ load StoreLoader }

func (l lazyRankings) Top(ctx context.Context, limit int) ([]model.RankingEntry, error) {
	s, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Rankings.Top(ctx, limit)
}

type lazyPinger struct{ load StoreLoader }

func (l lazyPinger) Ping(ctx context.Context) error {
	s, err := l.load(ctx)
	if err != nil {
		return err
	}
	return s.Pinger.Ping(ctx)
}
