// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail hands account lifecycle emails to a delivery process.

The account engine only needs a [Message] queued; rendering and SMTP belong to
a separate worker that consumes the outbox. Two senders are provided:

  - [Outbox]: pushes JSON messages onto a Redis list.
  - [LogMailer]: writes the message to the log, for local development.
*/
package mail

import (
	"net/url"
	"strings"
	"time"

	"github.com/dbotia/lab5/internal/users/account"
)

// # Templates

// Template identifies a mail and the subject key the renderer translates.
type Template struct {
	Name       string
	SubjectKey string
	Path       string
}

var (
	ActivationTemplate = Template{Name: "activation", SubjectKey: "email.activation.title", Path: "/account/activate"}
	CreationTemplate   = Template{Name: "creation", SubjectKey: "email.activation.title", Path: "/account/reset/finish"}
	ResetTemplate      = Template{Name: "password_reset", SubjectKey: "email.reset.title", Path: "/account/reset/finish"}
)

// # Messages

// Message is one queued email.
type Message struct {
	Template   string    `json:"template"`
	SubjectKey string    `json:"subject_key"`
	To         string    `json:"to"`
	Login      string    `json:"login"`
	FirstName  string    `json:"first_name,omitempty"`
	LangKey    string    `json:"lang_key"`
	Key        string    `json:"key"`
	Link       string    `json:"link"`
	QueuedAt   time.Time `json:"queued_at"`
}

// NewMessage builds the message for template addressed to a, carrying key.
func NewMessage(template Template, a *account.Account, key, baseURL string, now time.Time) Message {
	return Message{
		Template:   template.Name,
		SubjectKey: template.SubjectKey,
		To:         a.Email,
		Login:      a.Login,
		FirstName:  a.FirstName,
		LangKey:    a.LangKey,
		Key:        key,
		Link:       strings.TrimRight(baseURL, "/") + template.Path + "?key=" + url.QueryEscape(key),
		QueuedAt:   now.UTC(),
	}
}

func deref(key *string) string {
	if key == nil {
		return ""
	}
	return *key
}
