package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/mathlovers/internal/model"
)

// MongoQuestionRepo はMongoDBのquestionsコレクションを使用した質問リポジトリ。
type MongoQuestionRepo struct {
	questions *mongo.Collection
	answers   *mongo.Collection
}

// NewMongoQuestionRepo はMongoQuestionRepoを生成する。
func NewMongoQuestionRepo(db *mongo.Database) *MongoQuestionRepo {
	return &MongoQuestionRepo{
		questions: db.Collection(collQuestions),
		answers:   db.Collection(collAnswers),
	}
}

// withAuthorUsername は author を users._id と結合して authorUsername を付与するステージ。
// 投稿者が存在しない場合は空文字になる。
func withAuthorUsername() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collUsers},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "authorInfo"},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "authorUsername", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$first", Value: "$authorInfo.username"}}, "",
			}}}},
		}}},
		{{Key: "$unset", Value: "authorInfo"}},
	}
}

// List は全質問を作成日時の降順で返す。
func (r *MongoQuestionRepo) List(ctx context.Context) ([]model.QuestionWithAuthor, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}, withAuthorUsername()...)

	cursor, err := r.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	var docs []mongoQuestion
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}

	questions := make([]model.QuestionWithAuthor, 0, len(docs))
	for i := range docs {
		questions = append(questions, docs[i].toModel())
	}
	return questions, nil
}

// FindByID は指定IDの質問を取得する。見つからない場合はnilを返す。
func (r *MongoQuestionRepo) FindByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$limit", Value: 1}},
	}, withAuthorUsername()...)

	cursor, err := r.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	var docs []mongoQuestion
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode question: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	q := docs[0].toModel()
	return &q, nil
}

// Create は質問を作成する。
func (r *MongoQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	doc := mongoQuestion{
		ID:        q.ID,
		AuthorID:  q.AuthorID,
		Title:     q.Title,
		Content:   q.Content,
		Tags:      nonNil(q.Tags),
		Image:     q.Image,
		Likes:     nonNil(q.LikedBy),
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
	if _, err := r.questions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// Delete は質問を削除した後、その質問に属する回答を削除する。
// 2つの操作はトランザクションで囲まない。途中で失敗して残った回答はクリーンアップジョブが削除する。
func (r *MongoQuestionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.questions.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("question not found: %s", id)
	}

	if _, err := r.answers.DeleteMany(ctx, bson.D{{Key: "questionId", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete answers: %w", err)
	}
	return nil
}

// compile-time interface check
var _ QuestionRepository = (*MongoQuestionRepo)(nil)
