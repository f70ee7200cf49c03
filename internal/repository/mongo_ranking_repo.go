package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/mathlovers/internal/model"
)

// MongoRankingRepo は集計パイプラインでランキングを算出する。
type MongoRankingRepo struct {
	questions *mongo.Collection
}

// NewMongoRankingRepo はMongoRankingRepoを生成する。
func NewMongoRankingRepo(db *mongo.Database) *MongoRankingRepo {
	return &MongoRankingRepo{questions: db.Collection(collQuestions)}
}

// Top は質問を投稿者ごとに集計し、usersと結合できたものだけを返す。
func (r *MongoRankingRepo) Top(ctx context.Context, limit int) ([]model.RankingEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$author"},
			{Key: "questionCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalLikes", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.D{
					{Key: "if", Value: bson.D{{Key: "$isArray", Value: "$likes"}}},
					{Key: "then", Value: bson.D{{Key: "$size", Value: "$likes"}}},
					{Key: "else", Value: 0},
				}},
			}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collUsers},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userInfo"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$userInfo"},
			{Key: "preserveNullAndEmptyArrays", Value: false},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "username", Value: "$userInfo.username"},
			{Key: "questionCount", Value: 1},
			{Key: "totalLikes", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "questionCount", Value: -1},
			{Key: "totalLikes", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rankings: %w", err)
	}

	var docs []struct {
		UserID        string `bson:"_id"`
		Username      string `bson:"username"`
		QuestionCount int    `bson:"questionCount"`
		TotalLikes    int    `bson:"totalLikes"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rankings: %w", err)
	}

	entries := make([]model.RankingEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, model.RankingEntry{
			UserID:        d.UserID,
			Username:      d.Username,
			QuestionCount: d.QuestionCount,
			TotalLikes:    d.TotalLikes,
		})
	}
	return entries, nil
}

// MongoPinger はMongoDBの疎通を確認する。
type MongoPinger struct {
	client *mongo.Client
}

// NewMongoPinger はMongoPingerを生成する。
func NewMongoPinger(client *mongo.Client) *MongoPinger {
	return &MongoPinger{client: client}
}

// Ping はプライマリにPingを送る。
func (p *MongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, nil)
}

// compile-time interface check
var (
	_ RankingRepository = (*MongoRankingRepo)(nil)
	_ Pinger            = (*MongoPinger)(nil)
)
