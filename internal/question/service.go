// Package question は質問と回答の投稿・閲覧・削除のドメインロジックを提供する。
package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/repository"
	"github.com/hitoshi/mathlovers/internal/security"
)

// 入力の上限
const (
	MaxTitleLength = 100
	MaxTags        = 10
	MaxTagLength   = 30
)

// CreateQuestionInput は質問投稿の入力。
type CreateQuestionInput struct {
	Title   string
	Content string
	Tags    []string
	Image   string
}

// CreateAnswerInput は回答投稿の入力。
type CreateAnswerInput struct {
	Content string
	Image   string
}

// Detail は質問と、その回答一覧（新しい順）。
type Detail struct {
	Question *model.QuestionWithAuthor
	Answers  []model.AnswerWithAuthor
}

// Service は質問と回答のサービス層。
type Service struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		questions: questions,
		answers:   answers,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は全質問を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.QuestionWithAuthor, error) {
	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("質問一覧の取得に失敗しました: %w", err)
	}
	return questions, nil
}

// Get は質問と回答一覧を返す。
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("質問の取得に失敗しました: %w", err)
	}
	if q == nil {
		return nil, model.NewQuestionNotFoundError(id)
	}

	answers, err := s.answers.ListByQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("回答一覧の取得に失敗しました: %w", err)
	}

	return &Detail{Question: q, Answers: answers}, nil
}

// Create は質問を投稿する。本文はサニタイズして保存する。
func (s *Service) Create(ctx context.Context, authorID string, in CreateQuestionInput) (*model.Question, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です。")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください。", MaxTitleLength))
	}

	content, err := s.sanitizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	if err := validateImage(in.Image); err != nil {
		return nil, err
	}

	now := s.now()
	q := &model.Question{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Tags:      tags,
		Image:     in.Image,
		LikedBy:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("質問の保存に失敗しました: %w", err)
	}

	slog.Info("question created",
		slog.String("question_id", q.ID),
		slog.String("user_id", authorID),
	)
	return q, nil
}

// CreateAnswer は質問に回答を投稿する。質問が存在しない場合は404エラーを返す。
func (s *Service) CreateAnswer(ctx context.Context, authorID, questionID string, in CreateAnswerInput) (*model.Answer, error) {
	content, err := s.sanitizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	if err := validateImage(in.Image); err != nil {
		return nil, err
	}

	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("質問の取得に失敗しました: %w", err)
	}
	if q == nil {
		return nil, model.NewQuestionNotFoundError(questionID)
	}

	now := s.now()
	a := &model.Answer{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    content,
		Image:      in.Image,
		LikedBy:    []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.answers.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("回答の保存に失敗しました: %w", err)
	}

	slog.Info("answer created",
		slog.String("answer_id", a.ID),
		slog.String("question_id", questionID),
		slog.String("user_id", authorID),
	)
	return a, nil
}

// DeleteQuestion は質問と全回答を削除する。投稿者本人のみ削除できる。
func (s *Service) DeleteQuestion(ctx context.Context, userID, id string) error {
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("質問の取得に失敗しました: %w", err)
	}
	if q == nil {
		return model.NewQuestionNotFoundError(id)
	}
	if q.AuthorID != userID {
		return model.NewNotOwnerError()
	}

	if err := s.questions.Delete(ctx, id); err != nil {
		return fmt.Errorf("質問の削除に失敗しました: %w", err)
	}

	slog.Info("question deleted",
		slog.String("question_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// DeleteAnswer は回答を削除する。投稿者本人のみ削除できる。
func (s *Service) DeleteAnswer(ctx context.Context, userID, id string) error {
	a, err := s.answers.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("回答の取得に失敗しました: %w", err)
	}
	if a == nil {
		return model.NewAnswerNotFoundError(id)
	}
	if a.AuthorID != userID {
		return model.NewNotOwnerError()
	}

	if err := s.answers.Delete(ctx, id); err != nil {
		return fmt.Errorf("回答の削除に失敗しました: %w", err)
	}

	slog.Info("answer deleted",
		slog.String("answer_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// sanitizeContent は本文をサニタイズし、空になった場合はエラーを返す。
func (s *Service) sanitizeContent(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", model.NewValidationError("本文は必須です。")
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(raw))
	if clean == "" {
		return "", model.NewValidationError("本文に表示できる内容がありません。")
	}
	return clean, nil
}

// normalizeTags は前後の空白を除去し、空のタグと重複を取り除く。
func normalizeTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, model.NewValidationError(fmt.Sprintf("タグは%d文字以内で入力してください。", MaxTagLength))
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return nil, model.NewValidationError(fmt.Sprintf("タグは%d個までです。", MaxTags))
	}
	return tags, nil
}

func validateImage(image string) error {
	err := security.ValidateImageDataURL(image)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, security.ErrImageTooLarge):
		return model.NewValidationError(fmt.Sprintf("画像は%dMB以下にしてください。", security.MaxImageBytes>>20))
	default:
		return model.NewValidationError("画像はPNG、JPEG、GIF、WebPのdata URLで指定してください。")
	}
}
