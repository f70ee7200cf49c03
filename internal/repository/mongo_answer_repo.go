package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/mathlovers/internal/model"
)

// MongoAnswerRepo はMongoDBのanswersコレクションを使用した回答リポジトリ。
type MongoAnswerRepo struct {
	coll *mongo.Collection
}

// NewMongoAnswerRepo はMongoAnswerRepoを生成する。
func NewMongoAnswerRepo(db *mongo.Database) *MongoAnswerRepo {
	return &MongoAnswerRepo{coll: db.Collection(collAnswers)}
}

// ListByQuestion は質問の回答を作成日時の降順で返す。
func (r *MongoAnswerRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "questionId", Value: questionID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}, withAuthorUsername()...)

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	var docs []mongoAnswer
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	answers := make([]model.AnswerWithAuthor, 0, len(docs))
	for i := range docs {
		answers = append(answers, docs[i].toModel())
	}
	return answers, nil
}

// FindByID は指定IDの回答を取得する。見つからない場合はnilを返す。
func (r *MongoAnswerRepo) FindByID(ctx context.Context, id string) (*model.Answer, error) {
	var doc mongoAnswer
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find answer: %w", err)
	}
	a := doc.toModel()
	return &a.Answer, nil
}

// Create は回答を作成する。
func (r *MongoAnswerRepo) Create(ctx context.Context, a *model.Answer) error {
	doc := mongoAnswer{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		AuthorID:   a.AuthorID,
		Content:    a.Content,
		Image:      a.Image,
		Likes:      nonNil(a.LikedBy),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

// Delete は指定IDの回答を削除する。
func (r *MongoAnswerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("answer not found: %s", id)
	}
	return nil
}

// DeleteOrphaned は存在しない質問を参照する回答を削除する。
func (r *MongoAnswerRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collQuestions},
			{Key: "localField", Value: "questionId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "question"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "question", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find orphaned answers: %w", err)
	}

	var orphans []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &orphans); err != nil {
		return 0, fmt.Errorf("failed to decode orphaned answers: %w", err)
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	ids := make(bson.A, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.ID)
	}
	result, err := r.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned answers: %w", err)
	}
	return result.DeletedCount, nil
}

// compile-time interface check
var _ AnswerRepository = (*MongoAnswerRepo)(nil)
