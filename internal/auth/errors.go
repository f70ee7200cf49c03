package auth

import "errors"

var (
	// ErrInvalidAssertion はIdPがトークンを有効と認めなかった場合のエラー。
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	// ErrIncompleteIdentity はIdPの応答にsubjectまたはemailが含まれない場合のエラー。
	ErrIncompleteIdentity = errors.New("incomplete identity")
	// ErrAudienceMismatch はトークンのaudienceが設定値と一致しない場合のエラー。
	ErrAudienceMismatch = errors.New("audience mismatch")
	// ErrUsernameTaken は指定されたユーザー名が使用済みの場合のエラー。
	ErrUsernameTaken = errors.New("username taken")
	// ErrInvalidUsername はユーザー名の形式エラー。
	ErrInvalidUsername = errors.New("invalid username")
	// ErrAllocationExhausted はユーザー名の自動割り当てが上限に達した場合のエラー。
	ErrAllocationExhausted = errors.New("username allocation exhausted")
	// ErrEmailTaken はメールアドレスが別ユーザーで使用済みの場合のエラー。
	ErrEmailTaken = errors.New("email taken")
	// ErrWeakPassword はパスワードが短すぎる場合のエラー。
	ErrWeakPassword = errors.New("password too short")
	// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラー。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound はセッションのユーザーが存在しない場合のエラー。
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailRequired はメールアドレス未登録ユーザーへの確認メール送信エラー。
	ErrEmailRequired = errors.New("email required")
	// ErrInvalidVerificationToken はメール確認トークンが無効な場合のエラー。
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrOAuthDisabled はGoogle OAuthリダイレクトフローが未設定の場合のエラー。
	ErrOAuthDisabled = errors.New("google oauth is not configured")
)
