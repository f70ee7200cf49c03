package repository

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/mathlovers/internal/database"
	"github.com/hitoshi/mathlovers/internal/model"
)

// MongoDBのコレクション名
const (
	collUsers     = "users"
	collQuestions = "questions"
	collAnswers   = "answers"
)

type mongoExternalID struct {
	Provider string `bson:"provider"`
	Subject  string `bson:"subject"`
}

type mongoUser struct {
	ID            string            `bson:"_id"`
	Username      string            `bson:"username"`
	Email         *string           `bson:"email,omitempty"`
	PasswordHash  string            `bson:"passwordHash,omitempty"`
	EmailVerified bool              `bson:"emailVerified"`
	ExternalIDs   []mongoExternalID `bson:"externalIds,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
}

func newMongoUser(u *model.User) mongoUser {
	doc := mongoUser{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.Email != "" {
		email := u.Email
		doc.Email = &email
	}
	for _, ext := range u.ExternalIDs {
		doc.ExternalIDs = append(doc.ExternalIDs, mongoExternalID{Provider: ext.Provider, Subject: ext.Subject})
	}
	return doc
}

func (d *mongoUser) toModel() *model.User {
	u := &model.User{
		ID:            d.ID,
		Username:      d.Username,
		PasswordHash:  d.PasswordHash,
		EmailVerified: d.EmailVerified,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Email != nil {
		u.Email = *d.Email
	}
	for _, ext := range d.ExternalIDs {
		u.ExternalIDs = append(u.ExternalIDs, model.ExternalID{Provider: ext.Provider, Subject: ext.Subject})
	}
	return u
}

type mongoQuestion struct {
	ID             string    `bson:"_id"`
	AuthorID       string    `bson:"author"`
	Title          string    `bson:"title"`
	Content        string    `bson:"content"`
	Tags           []string  `bson:"tags"`
	Image          string    `bson:"image,omitempty"`
	Likes          []string  `bson:"likes"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
	AuthorUsername string    `bson:"authorUsername,omitempty"`
}

func (d *mongoQuestion) toModel() model.QuestionWithAuthor {
	return model.QuestionWithAuthor{
		Question: model.Question{
			ID:        d.ID,
			AuthorID:  d.AuthorID,
			Title:     d.Title,
			Content:   d.Content,
			Tags:      nonNil(d.Tags),
			Image:     d.Image,
			LikedBy:   nonNil(d.Likes),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		AuthorUsername: d.AuthorUsername,
	}
}

type mongoAnswer struct {
	ID             string    `bson:"_id"`
	QuestionID     string    `bson:"questionId"`
	AuthorID       string    `bson:"author"`
	Content        string    `bson:"content"`
	Image          string    `bson:"image,omitempty"`
	Likes          []string  `bson:"likes"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
	AuthorUsername string    `bson:"authorUsername,omitempty"`
}

func (d *mongoAnswer) toModel() model.AnswerWithAuthor {
	return model.AnswerWithAuthor{
		Answer: model.Answer{
			ID:         d.ID,
			QuestionID: d.QuestionID,
			AuthorID:   d.AuthorID,
			Content:    d.Content,
			Image:      d.Image,
			LikedBy:    nonNil(d.Likes),
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
		},
		AuthorUsername: d.AuthorUsername,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// mongoIndexKeys はMongoDBのインデックス名とキー名の対応。
var mongoIndexKeys = map[string]string{
	database.MongoIndexUsername:   KeyUsername,
	database.MongoIndexEmail:      KeyEmail,
	database.MongoIndexExternalID: KeyExternalID,
}

// translateMongoError は重複キーエラーを *DuplicateKeyError に変換する。
// どのインデックスに違反したかはエラーメッセージのインデックス名で判別する。
func translateMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	for index, key := range mongoIndexKeys {
		if strings.Contains(err.Error(), index) {
			return &DuplicateKeyError{Key: key, Err: err}
		}
	}
	return &DuplicateKeyError{Key: "unknown", Err: err}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
