// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dbotia/lab5/internal/users/account"
)

// ListPusher is the part of the Redis client the outbox uses.
type ListPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Outbox queues messages on a Redis list. Consumers pop from the other end
// (BRPOP), so delivery order matches queue order.
type Outbox struct {
	client  ListPusher
	key     string
	baseURL string
	now     func() time.Time
}

// NewOutbox creates an outbox writing to the list at key. Links in messages
// are rooted at baseURL.
func NewOutbox(client ListPusher, key, baseURL string) *Outbox {
	return &Outbox{client: client, key: key, baseURL: baseURL, now: time.Now}
}

func (outbox *Outbox) SendActivationEmail(ctx context.Context, a *account.Account) error {
	return outbox.push(ctx, NewMessage(ActivationTemplate, a, deref(a.ActivationKey), outbox.baseURL, outbox.now()))
}

func (outbox *Outbox) SendCreationEmail(ctx context.Context, a *account.Account) error {
	return outbox.push(ctx, NewMessage(CreationTemplate, a, deref(a.ResetKey), outbox.baseURL, outbox.now()))
}

func (outbox *Outbox) SendPasswordResetMail(ctx context.Context, a *account.Account) error {
	return outbox.push(ctx, NewMessage(ResetTemplate, a, deref(a.ResetKey), outbox.baseURL, outbox.now()))
}

func (outbox *Outbox) push(ctx context.Context, message Message) error {
	if message.Key == "" {
		return fmt.Errorf("mail_outbox_%s_missing_key", message.Template)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mail_outbox_encode_failed: %w", err)
	}

	if err := outbox.client.LPush(ctx, outbox.key, payload).Err(); err != nil {
		return fmt.Errorf("mail_outbox_push_failed: %w", err)
	}
	return nil
}

var _ account.Mailer = (*Outbox)(nil)
