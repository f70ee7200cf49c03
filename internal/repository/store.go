package repository

import (
	"context"
	"database/sql"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Store はバックエンドごとのリポジトリ実装をまとめる。
// PostgreSQLとMongoDBのどちらを使うかは起動時に決まる。
type Store struct {
	Users     UserRepository
	Questions QuestionRepository
	Answers   AnswerRepository
	Likes     LikeRepository
	Rankings  RankingRepository
	Pinger    Pinger
}

// NewPostgresStore はPostgreSQL実装のStoreを生成する。
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:     NewPostgresUserRepo(db),
		Questions: NewPostgresQuestionRepo(db),
		Answers:   NewPostgresAnswerRepo(db),
		Likes:     NewPostgresLikeRepo(db),
		Rankings:  NewPostgresRankingRepo(db),
		Pinger:    NewPostgresPinger(db),
	}
}

// NewMongoStore はMongoDB実装のStoreを生成する。
func NewMongoStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		Users:     NewMongoUserRepo(db),
		Questions: NewMongoQuestionRepo(db),
		Answers:   NewMongoAnswerRepo(db),
		Likes:     NewMongoLikeRepo(db),
		Rankings:  NewMongoRankingRepo(db),
		Pinger:    NewMongoPinger(client),
	}
}

// Health はデータストアへのPingを行う。
func (s *Store) Health(ctx context.Context) error {
	return s.Pinger.Ping(ctx)
}
