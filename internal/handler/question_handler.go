package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mathlovers/internal/middleware"
	"github.com/hitoshi/mathlovers/internal/model"
	"github.com/hitoshi/mathlovers/internal/question"
)

// QuestionServiceInterface は質問ハンドラーが必要とするサービスインターフェース。
type QuestionServiceInterface interface {
	List(ctx context.Context) ([]model.QuestionWithAuthor, error)
	Get(ctx context.Context, id string) (*question.Detail, error)
	Create(ctx context.Context, authorID string, in question.CreateQuestionInput) (*model.Question, error)
	CreateAnswer(ctx context.Context, authorID, questionID string, in question.CreateAnswerInput) (*model.Answer, error)
	DeleteQuestion(ctx context.Context, userID, id string) error
	DeleteAnswer(ctx context.Context, userID, id string) error
}

// QuestionHandler は質問・回答関連のHTTPハンドラー。
type QuestionHandler struct {
	service QuestionServiceInterface
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(service QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{service: service}
}

type authorResponse struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

type questionResponse struct {
	ID        string         `json:"_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Tags      []string       `json:"tags"`
	Image     string         `json:"image,omitempty"`
	Author    authorResponse `json:"author"`
	Likes     int            `json:"likes"`
	LikedBy   []string       `json:"likedBy"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type answerResponse struct {
	ID         string         `json:"_id"`
	QuestionID string         `json:"question"`
	Content    string         `json:"content"`
	Image      string         `json:"image,omitempty"`
	Author     authorResponse `json:"author"`
	Likes      int            `json:"likes"`
	LikedBy    []string       `json:"likedBy"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toQuestionResponse(q model.Question, username string) questionResponse {
	return questionResponse{
		ID:        q.ID,
		Title:     q.Title,
		Content:   q.Content,
		Tags:      nonNil(q.Tags),
		Image:     q.Image,
		Author:    authorResponse{ID: q.AuthorID, Username: username},
		Likes:     len(q.LikedBy),
		LikedBy:   nonNil(q.LikedBy),
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func toAnswerResponse(a model.Answer, username string) answerResponse {
	return answerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Content:    a.Content,
		Image:      a.Image,
		Author:     authorResponse{ID: a.AuthorID, Username: username},
		Likes:      len(a.LikedBy),
		LikedBy:    nonNil(a.LikedBy),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

type createQuestionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Image   string   `json:"image"`
}

type createAnswerRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

// List は全質問を新しい順に返す。
// GET /api/questions
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		resp = append(resp, toQuestionResponse(q.Question, q.AuthorUsername))
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": resp})
}

// Get は質問と回答一覧を返す。
// GET /api/questions/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	answers := make([]answerResponse, 0, len(detail.Answers))
	for _, a := range detail.Answers {
		answers = append(answers, toAnswerResponse(a.Answer, a.AuthorUsername))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question": toQuestionResponse(detail.Question.Question, detail.Question.AuthorUsername),
		"answers":  answers,
	})
}

// Create は質問を投稿する。
// POST /api/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.service.Create(r.Context(), userID, question.CreateQuestionInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Image:   req.Image,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	username := middleware.UsernameFromContext(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{"question": toQuestionResponse(*q, username)})
}

// CreateAnswer は質問に回答を投稿する。
// POST /api/questions/{id}/answers
func (h *QuestionHandler) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.CreateAnswer(r.Context(), userID, chi.URLParam(r, "id"), question.CreateAnswerInput{
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	username := middleware.UsernameFromContext(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{"answer": toAnswerResponse(*a, username)})
}

// DeleteQuestion は自分の質問を削除する。
// DELETE /api/questions/{id}
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteQuestion(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Question deleted successfully"})
}

// DeleteAnswer は自分の回答を削除する。
// DELETE /api/answers/{id}
func (h *QuestionHandler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAnswer(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Answer deleted successfully"})
}
