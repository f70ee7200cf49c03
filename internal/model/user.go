// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// パスワードハッシュまたは外部IDのいずれか1つ以上を必ず持つ。
type User struct {
	ID            string
	Username      string
	Email         string // 小文字正規化済み。未設定の場合は空文字
	PasswordHash  string // ローカル登録ユーザーのみ
	EmailVerified bool
	ExternalIDs   []ExternalID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExternalID は外部IdPとの紐付け情報を表す。
// (Provider, Subject) の組は全ユーザーを通して一意。
type ExternalID struct {
	Provider string // "firebase", "google" 等
	Subject  string // IdP側のユーザー識別子
}

// 既知のプロバイダー名
const (
	ProviderFirebase = "firebase"
	ProviderGoogle   = "google"
)

// HasPassword はパスワード認証が可能かどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasExternalID は指定の外部IDが紐付いているかどうかを返す。
func (u *User) HasExternalID(provider, subject string) bool {
	for _, ext := range u.ExternalIDs {
		if ext.Provider == provider && ext.Subject == subject {
			return true
		}
	}
	return false
}

// CanAuthenticate は認証手段を1つ以上持つかどうかを返す。
func (u *User) CanAuthenticate() bool {
	return u.HasPassword() || len(u.ExternalIDs) > 0
}

// NormalizeEmail はメールアドレスを前後の空白除去と小文字化で正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
