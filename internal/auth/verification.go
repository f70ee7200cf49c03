package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purposeEmailVerification = "email_verification"

// IssueVerificationToken はメール確認リンク用のトークンを発行する。
// セッションとしては使用できない。
func (m *SessionManager) IssueVerificationToken(userID, email string, ttl time.Duration) (string, error) {
	now := m.now()
	return m.sign(Claims{
		UserID:  userID,
		Purpose: purposeEmailVerification,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

// VerifyVerificationToken はメール確認トークンを検証し、ユーザーIDと発行時のメールアドレスを返す。
func (m *SessionManager) VerifyVerificationToken(token string) (userID, email string, err error) {
	claims, err := m.parse(token)
	if err != nil {
		return "", "", ErrInvalidVerificationToken
	}
	if claims.Purpose != purposeEmailVerification || claims.Email == "" {
		return "", "", ErrInvalidVerificationToken
	}
	return claims.UserID, claims.Email, nil
}
