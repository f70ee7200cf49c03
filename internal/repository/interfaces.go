// Package repository はデータ永続化のインターフェースを定義する。
// PostgreSQLとMongoDBの2つの実装を持ち、サービス層はインターフェースのみに依存する。
package repository

import (
	"context"

	"github.com/hitoshi/mathlovers/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByExternalID は (provider, subject) が紐付いたユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByExternalID(ctx context.Context, provider, subject string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名で大文字小文字を区別せずに検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// UsernameExists はユーザー名が使用済みかどうかを大文字小文字を区別せずに返す。
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Create はユーザーと外部IDを作成する。
	// 一意制約に違反した場合は *DuplicateKeyError を返す。
	Create(ctx context.Context, user *model.User) error

	// LinkExternalID は既存ユーザーに外部IDを追加する。
	// 他のユーザーに紐付いている場合は *DuplicateKeyError を返す。
	LinkExternalID(ctx context.Context, userID string, ext model.ExternalID) error

	// MarkEmailVerified はメールアドレスを確認済みにする。
	MarkEmailVerified(ctx context.Context, userID string) error
}

// QuestionRepository は質問データの永続化インターフェース。
type QuestionRepository interface {
	// List は全質問を作成日時の降順で返す。投稿者名を含む。
	List(ctx context.Context) ([]model.QuestionWithAuthor, error)

	// FindByID は指定IDの質問を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error)

	// Create は質問を作成する。
	Create(ctx context.Context, q *model.Question) error

	// Delete は質問と、その質問に属する全回答を削除する。
	Delete(ctx context.Context, id string) error
}

// AnswerRepository は回答データの永続化インターフェース。
type AnswerRepository interface {
	// ListByQuestion は質問の回答を作成日時の降順で返す。
	ListByQuestion(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error)

	// FindByID は指定IDの回答を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Answer, error)

	// Create は回答を作成する。
	Create(ctx context.Context, a *model.Answer) error

	// Delete は指定IDの回答を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteOrphaned は存在しない質問を参照する回答を削除し、削除件数を返す。
	DeleteOrphaned(ctx context.Context) (int64, error)
}

// LikeRepository はいいねの永続化インターフェース。
type LikeRepository interface {
	// Toggle はユーザーのいいね状態をストレージ上で原子的に反転する。
	// 対象が存在しない場合はnilを返す。
	Toggle(ctx context.Context, target model.LikeTarget, targetID, userID string) (*model.LikeResult, error)

	// DeleteOrphaned は削除済みの対象を指すいいねを削除し、削除件数を返す。
	DeleteOrphaned(ctx context.Context) (int64, error)
}

// RankingRepository はユーザーランキングの集計インターフェース。
type RankingRepository interface {
	// Top は質問数の降順、同数の場合は合計いいね数の降順で上位limit件を返す。
	// 存在しないユーザーの質問は集計から除外する。
	Top(ctx context.Context, limit int) ([]model.RankingEntry, error)
}

// Pinger はデータストアの疎通確認インターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}
