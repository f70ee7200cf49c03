// Package mail はトランザクションメールの送信を提供する。
// 本番ではPostmark、開発環境ではログ出力のみの送信器を使う。
package mail

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrInvalidConfig は送信器の設定不備を表す。
	ErrInvalidConfig = errors.New("invalid mail config")
	// ErrInvalidMessage は宛先や件名が欠けたメッセージを表す。
	ErrInvalidMessage = errors.New("invalid mail message")
	// ErrSendFailed は送信失敗を表す。
	ErrSendFailed = errors.New("failed to send mail")
)

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Message は送信するメール1通分。
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// Validate は宛先、件名、本文が揃っているかを検証する。
func (m Message) Validate() error {
	if !addressPattern.MatchString(m.To) {
		return errors.Join(ErrInvalidMessage, errors.New("recipient address is invalid"))
	}
	if m.Subject == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject is required"))
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return errors.Join(ErrInvalidMessage, errors.New("body is required"))
	}
	return nil
}

// Sender はメールを送信する。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
