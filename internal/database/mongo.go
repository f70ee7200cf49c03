package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBのインデックス名。重複キーエラーの判別にも使用する。
const (
	MongoIndexUsername   = "users_username_ci"
	MongoIndexEmail      = "users_email_unique"
	MongoIndexExternalID = "users_external_id_unique"
)

// CaseInsensitive はユーザー名の大文字小文字を区別しない比較に使う照合順序。
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// ConnectMongo はMongoDBに接続し、timeout以内にPingが成功することを確認する。
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(uri).
			SetConnectTimeout(timeout).
			SetServerSelectionTimeout(timeout).
			SetRetryWrites(true).
			SetRetryReads(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return client, nil
}

// EnsureMongoIndexes は一意制約と検索用インデックスを作成する。
// 既に同じ定義のインデックスが存在する場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName(MongoIndexUsername).
				SetUnique(true).
				SetCollation(CaseInsensitive),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName(MongoIndexEmail).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "email", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
		{
			Keys: bson.D{{Key: "externalIds.provider", Value: 1}, {Key: "externalIds.subject", Value: 1}},
			Options: options.Index().
				SetName(MongoIndexExternalID).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "externalIds.subject", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	questions := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	}
	if _, err := db.Collection("questions").Indexes().CreateMany(ctx, questions); err != nil {
		return fmt.Errorf("failed to create question indexes: %w", err)
	}

	answers := []mongo.IndexModel{
		{Keys: bson.D{{Key: "questionId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection("answers").Indexes().CreateMany(ctx, answers); err != nil {
		return fmt.Errorf("failed to create answer indexes: %w", err)
	}

	return nil
}
