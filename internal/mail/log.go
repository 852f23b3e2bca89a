// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/users/account"
)

// LogMailer records messages in the log instead of queueing them. In debug
// mode the link is logged in full so a developer can follow it; otherwise only
// a fingerprint of the key is written.
type LogMailer struct {
	logger  *slog.Logger
	baseURL string
	debug   bool
}

// NewLogMailer creates a [LogMailer].
func NewLogMailer(logger *slog.Logger, baseURL string, debug bool) *LogMailer {
	return &LogMailer{logger: logger, baseURL: baseURL, debug: debug}
}

func (mailer *LogMailer) SendActivationEmail(ctx context.Context, a *account.Account) error {
	mailer.write(ctx, NewMessage(ActivationTemplate, a, deref(a.ActivationKey), mailer.baseURL, time.Now()))
	return nil
}

func (mailer *LogMailer) SendCreationEmail(ctx context.Context, a *account.Account) error {
	mailer.write(ctx, NewMessage(CreationTemplate, a, deref(a.ResetKey), mailer.baseURL, time.Now()))
	return nil
}

func (mailer *LogMailer) SendPasswordResetMail(ctx context.Context, a *account.Account) error {
	mailer.write(ctx, NewMessage(ResetTemplate, a, deref(a.ResetKey), mailer.baseURL, time.Now()))
	return nil
}

func (mailer *LogMailer) write(ctx context.Context, message Message) {
	attrs := []any{
		slog.String("template", message.Template),
		slog.String("to", message.To),
		slog.String("login", message.Login),
		slog.String("key_fingerprint", sec.HashToken(message.Key)[:12]),
	}
	if mailer.debug {
		attrs = append(attrs, slog.String("link", message.Link))
	}
	mailer.logger.InfoContext(ctx, "mail_logged", attrs...)
}

var _ account.Mailer = (*LogMailer)(nil)
