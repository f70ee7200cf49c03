package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/mathlovers/internal/model"
)

// maxToggleAttempts は条件付き更新が両方とも一致しなかった場合の再試行回数。
// 他のリクエストと競合した場合にのみ再試行が発生する。
const maxToggleAttempts = 5

// MongoLikeRepo は質問・回答ドキュメントのlikes配列を条件付き更新で反転する。
type MongoLikeRepo struct {
	colls map[model.LikeTarget]*mongo.Collection
}

// NewMongoLikeRepo はMongoLikeRepoを生成する。
func NewMongoLikeRepo(db *mongo.Database) *MongoLikeRepo {
	return &MongoLikeRepo{colls: map[model.LikeTarget]*mongo.Collection{
		model.LikeTargetQuestion: db.Collection(collQuestions),
		model.LikeTargetAnswer:   db.Collection(collAnswers),
	}}
}

// Toggle はlikesにuserIDが含まれなければ$addToSet、含まれていれば$pullを
// 単一ドキュメントへの条件付きFindOneAndUpdateとして実行する。
func (r *MongoLikeRepo) Toggle(ctx context.Context, target model.LikeTarget, targetID, userID string) (*model.LikeResult, error) {
	coll, ok := r.colls[target]
	if !ok {
		return nil, fmt.Errorf("unknown like target: %s", target)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "likes", Value: 1}})

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		var doc struct {
			Likes []string `bson:"likes"`
		}

		err := coll.FindOneAndUpdate(ctx,
			bson.D{{Key: "_id", Value: targetID}, {Key: "likes", Value: bson.D{{Key: "$ne", Value: userID}}}},
			bson.D{{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}}},
			opts,
		).Decode(&doc)
		if err == nil {
			return &model.LikeResult{Likes: len(doc.Likes), IsLiked: true}, nil
		}
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("failed to add like: %w", err)
		}

		err = coll.FindOneAndUpdate(ctx,
			bson.D{{Key: "_id", Value: targetID}, {Key: "likes", Value: userID}},
			bson.D{{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}}},
			opts,
		).Decode(&doc)
		if err == nil {
			return &model.LikeResult{Likes: len(doc.Likes), IsLiked: false}, nil
		}
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("failed to remove like: %w", err)
		}

		// どちらの条件にも一致しない場合は対象が存在しないか、
		// 2つの更新の間に同一ユーザーの別リクエストが状態を反転した。
		n, err := coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: targetID}}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("failed to check like target: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
	}

	return nil, fmt.Errorf("like toggle did not converge after %d attempts", maxToggleAttempts)
}

// DeleteOrphaned はMongoDBでは何もしない。
// いいねは対象ドキュメントに埋め込まれており、対象と同時に削除される。
func (r *MongoLikeRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	return 0, nil
}

// compile-time interface check
var _ LikeRepository = (*MongoLikeRepo)(nil)
