// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, question, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidAssertion    = "INVALID_ASSERTION"
	ErrCodeIncompleteIdentity  = "INCOMPLETE_IDENTITY"
	ErrCodeAudienceMismatch    = "AUDIENCE_MISMATCH"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeQuestionNotFound    = "QUESTION_NOT_FOUND"
	ErrCodeAnswerNotFound      = "ANSWER_NOT_FOUND"
	ErrCodeLikeTargetNotFound  = "LIKE_TARGET_NOT_FOUND"
	ErrCodeInvalidLikeTarget   = "INVALID_LIKE_TARGET"
	ErrCodeNotOwner            = "NOT_OWNER"
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeEmailRequired       = "EMAIL_REQUIRED"
	ErrCodeInvalidVerification = "INVALID_VERIFICATION_TOKEN"
	ErrCodeCSRF                = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrCodeOAuthDisabled       = "OAUTH_DISABLED"
	ErrCodeInvalidState        = "INVALID_OAUTH_STATE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は必須項目の欠落などの入力エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidAssertionError は外部IdPトークンの検証失敗エラーを生成する。
func NewInvalidAssertionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAssertion,
		Message:  "IDトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "もう一度サインインしてください。",
	}
}

// NewIncompleteIdentityError はIdPから必要な情報が得られなかった場合のエラーを生成する。
func NewIncompleteIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeIncompleteIdentity,
		Message:  "IDトークンから必要なユーザー情報を取得できませんでした。",
		Category: "auth",
		Action:   "メールアドレスの共有を許可して再度サインインしてください。",
	}
}

// NewAudienceMismatchError はトークンのaudienceが一致しない場合のエラーを生成する。
func NewAudienceMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeAudienceMismatch,
		Message:  "このアプリケーション向けのトークンではありません。",
		Category: "auth",
		Action:   "正しいサインイン画面からやり直してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidUsernameError はユーザー名の形式エラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  "ユーザー名の形式が正しくありません。",
		Category: "validation",
		Action:   "3〜30文字の英数字、アンダースコア、ドット、ハイフンで指定してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードが短すぎます。",
		Category: "validation",
		Action:   "8文字以上のパスワードを指定してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザーの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewQuestionNotFoundError は質問未検出エラーを生成する。
func NewQuestionNotFoundError(questionID string) *APIError {
	return &APIError{
		Code:     ErrCodeQuestionNotFound,
		Message:  fmt.Sprintf("指定された質問が見つかりません: %s", questionID),
		Category: "question",
		Action:   "質問IDを確認してください。",
	}
}

// NewAnswerNotFoundError は回答未検出エラーを生成する。
func NewAnswerNotFoundError(answerID string) *APIError {
	return &APIError{
		Code:     ErrCodeAnswerNotFound,
		Message:  fmt.Sprintf("指定された回答が見つかりません: %s", answerID),
		Category: "question",
		Action:   "回答IDを確認してください。",
	}
}

// NewLikeTargetNotFoundError はいいね対象が存在しない場合のエラーを生成する。
func NewLikeTargetNotFoundError(targetID string) *APIError {
	return &APIError{
		Code:     ErrCodeLikeTargetNotFound,
		Message:  fmt.Sprintf("いいね対象が見つかりません: %s", targetID),
		Category: "question",
		Action:   "対象IDを確認してください。",
	}
}

// NewInvalidLikeTargetError は無効な対象種別エラーを生成する。
func NewInvalidLikeTargetError(targetType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLikeTarget,
		Message:  fmt.Sprintf("無効な対象種別です: %s", targetType),
		Category: "validation",
		Action:   "typeには question または answer を指定してください。",
	}
}

// NewNotOwnerError は投稿者以外による削除を拒否するエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "自分の投稿のみ削除できます。",
		Category: "auth",
		Action:   "投稿者本人でログインしてください。",
	}
}

// NewEmailRequiredError はメールアドレス未登録ユーザーへの確認メール送信エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "アカウントにメールアドレスが登録されていません。",
		Category: "validation",
		Action:   "メールアドレスを登録してから再度お試しください。",
	}
}

// NewInvalidVerificationError はメール確認リンクが無効な場合のエラーを生成する。
func NewInvalidVerificationError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVerification,
		Message:  "確認リンクが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "確認メールを再送信してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewOAuthDisabledError はGoogle OAuthが未設定の場合のエラーを生成する。
func NewOAuthDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthDisabled,
		Message:  "Googleログインは現在利用できません。",
		Category: "auth",
		Action:   "別の方法でログインしてください。",
	}
}

// NewInvalidStateError はOAuthのstateパラメータ不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "ログイン要求の検証に失敗しました。",
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
