package model

import "time"

// Question はユーザーが投稿した質問（doubt）を表す。
type Question struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string // サニタイズ済みHTML
	Tags      []string
	Image     string // インラインデータ（data URL）。任意
	LikedBy   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answer は質問に対する回答を表す。
type Answer struct {
	ID         string
	QuestionID string
	AuthorID   string
	Content    string
	Image      string
	LikedBy    []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QuestionWithAuthor は投稿者名を結合した質問。
type QuestionWithAuthor struct {
	Question
	AuthorUsername string
}

// AnswerWithAuthor は投稿者名を結合した回答。
type AnswerWithAuthor struct {
	Answer
	AuthorUsername string
}

// LikeTarget はいいね対象の種別を表す。
type LikeTarget string

const (
	// LikeTargetQuestion は質問へのいいね。
	LikeTargetQuestion LikeTarget = "question"
	// LikeTargetAnswer は回答へのいいね。
	LikeTargetAnswer LikeTarget = "answer"
)

// Valid は既知の対象種別かどうかを返す。
func (t LikeTarget) Valid() bool {
	return t == LikeTargetQuestion || t == LikeTargetAnswer
}

// LikeResult はいいねトグル後の状態を表す。
type LikeResult struct {
	Likes   int
	IsLiked bool
}

// RankingEntry はランキング1行分の集計結果。
type RankingEntry struct {
	UserID        string `json:"_id"`
	Username      string `json:"username"`
	QuestionCount int    `json:"questionCount"`
	TotalLikes    int    `json:"totalLikes"`
}

// ContainsUser はlikedByにユーザーが含まれるかどうかを返す。
func ContainsUser(likedBy []string, userID string) bool {
	for _, id := range likedBy {
		if id == userID {
			return true
		}
	}
	return false
}
