package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/mathlovers/internal/database"
	"github.com/hitoshi/mathlovers/internal/model"
)

// MongoUserRepo はMongoDBのusersコレクションを使用したユーザーリポジトリ。
// 外部IDはドキュメント内の配列externalIdsに保持する。
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(collUsers)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindByExternalID は (provider, subject) が紐付いたユーザーを取得する。
func (r *MongoUserRepo) FindByExternalID(ctx context.Context, provider, subject string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "externalIds", Value: bson.D{
		{Key: "$elemMatch", Value: bson.D{
			{Key: "provider", Value: provider},
			{Key: "subject", Value: subject},
		}},
	}}})
}

// FindByEmail は正規化済みメールアドレスでユーザーを取得する。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByUsername はユーザー名で大文字小文字を区別せずに検索する。
func (r *MongoUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}},
		options.FindOne().SetCollation(database.CaseInsensitive))
}

// UsernameExists はユーザー名が使用済みかどうかを返す。
func (r *MongoUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.D{{Key: "username", Value: username}},
		options.Count().SetCollation(database.CaseInsensitive).SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

// Create はユーザーを1ドキュメントとして作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, err := r.coll.InsertOne(ctx, newMongoUser(user)); err != nil {
		return fmt.Errorf("failed to insert user: %w", translateMongoError(err))
	}
	return nil
}

// LinkExternalID は既存ユーザーに外部IDを追加する。
func (r *MongoUserRepo) LinkExternalID(ctx context.Context, userID string, ext model.ExternalID) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "externalIds", Value: mongoExternalID{Provider: ext.Provider, Subject: ext.Subject}}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now()}}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to link identity: %w", translateMongoError(err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// MarkEmailVerified はメールアドレスを確認済みにする。
func (r *MongoUserRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "emailVerified", Value: true},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*model.User, error) {
	var doc mongoUser
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
