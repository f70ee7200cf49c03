package mail

import (
	"context"
	"log/slog"
)

// LogSender はメールを送信せず、内容をログに出力する。
// Postmarkが未設定の開発環境で使う。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。loggerがnilの場合はデフォルトロガーを使う。
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send はメッセージをINFOレベルで記録する。
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "mail not sent (development sender)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
		slog.String("body", msg.TextBody),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
