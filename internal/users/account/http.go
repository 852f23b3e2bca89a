// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dbotia/lab5/internal/platform/middleware"
	requestutil "github.com/dbotia/lab5/internal/platform/request"
	"github.com/dbotia/lab5/internal/platform/respond"
	"github.com/dbotia/lab5/internal/platform/validate"
)

// Handler implements the HTTP layer of the account lifecycle.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// RegisterRoutes mounts the account endpoints on router, which is expected
// to be the /api sub-router with [middleware.Authenticate] already applied.
//
// credentialLimit guards the endpoints that accept a secret or trigger a
// mail; pass nil to skip it.
func (handler *Handler) RegisterRoutes(router chi.Router, credentialLimit func(http.Handler) http.Handler) {
	if credentialLimit == nil {
		credentialLimit = func(next http.Handler) http.Handler { return next }
	}

	// Public lifecycle
	router.With(credentialLimit).Post("/register", handler.register)
	router.Get("/activate", handler.activate)
	router.With(credentialLimit).Post("/account/reset-password/init", handler.requestPasswordReset)
	router.With(credentialLimit).Post("/account/reset-password/finish", handler.completePasswordReset)

	// Owner only
	router.Group(func(owner chi.Router) {
		owner.Use(middleware.RequireAuth)

		owner.Get("/account", handler.getAccount)
		owner.Post("/account", handler.saveAccount)
		owner.With(credentialLimit).Post("/account/change-password", handler.changePassword)
	})
}

// # Request Payloads

type registerRequest struct {
	Login     string `json:"login"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	LangKey   string `json:"langKey"`
}

type profileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	LangKey   string `json:"langKey"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type resetFinishRequest struct {
	Key         string `json:"key"`
	NewPassword string `json:"newPassword"`
}

// # Lifecycle Endpoints

/*
POST /api/register.

Description: Creates a pending account and sends the activation mail.

Request:
  - body: registerRequest

Response:
  - 201: Account: The pending account
  - 400: INVALID_PASSWORD, LOGIN_ALREADY_USED, EMAIL_ALREADY_USED or VALIDATION_ERROR
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	ValidateIdentity(v, input.Login, input.Email)
	ValidateProfile(v, input.FirstName, input.LastName, input.LangKey)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Register(request.Context(), RegisterInput{
		Login:     input.Login,
		Password:  input.Password,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		LangKey:   input.LangKey,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
GET /api/activate?key={key}.

Response:
  - 200: Account activated
  - 500: ACTIVATION_FAILED: Unknown or already used key
*/
func (handler *Handler) activate(writer http.ResponseWriter, request *http.Request) {
	key := request.URL.Query().Get(FieldKey)

	if _, err := handler.accountService.Activate(request.Context(), key); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Empty(writer)
}

/*
POST /api/account/reset-password/init.

Request:
  - body: the email address, as raw text or a JSON string

Response:
  - 200: Reset mail queued
  - 400: EMAIL_NOT_FOUND
*/
func (handler *Handler) requestPasswordReset(writer http.ResponseWriter, request *http.Request) {
	email, err := requestutil.ReadText(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.accountService.RequestPasswordReset(request.Context(), email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Empty(writer)
}

/*
POST /api/account/reset-password/finish.

Request:
  - body: resetFinishRequest

Response:
  - 200: Password replaced
  - 400: INVALID_PASSWORD
  - 500: RESET_FAILED: Unknown or expired key
*/
func (handler *Handler) completePasswordReset(writer http.ResponseWriter, request *http.Request) {
	var input resetFinishRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.accountService.CompletePasswordReset(request.Context(), input.NewPassword, input.Key); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Empty(writer)
}

// # Owner Endpoints

/*
GET /api/account.

Response:
  - 200: Account: The caller's account
  - 401: Authentication required
*/
func (handler *Handler) getAccount(writer http.ResponseWriter, request *http.Request) {
	login, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetAccount(request.Context(), login)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
POST /api/account.

Description: Updates names, email and language of the caller's account.

Response:
  - 200: Account: The updated account
  - 400: EMAIL_ALREADY_USED or VALIDATION_ERROR
*/
func (handler *Handler) saveAccount(writer http.ResponseWriter, request *http.Request) {
	login, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input profileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	ValidateEmail(v, input.Email)
	ValidateProfile(v, input.FirstName, input.LastName, input.LangKey)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.UpdateAccount(request.Context(), login, ProfileInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		LangKey:   input.LangKey,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
POST /api/account/change-password.

Response:
  - 200: Password replaced
  - 400: INVALID_PASSWORD
  - 401: AUTHENTICATION_FAILED: Current password does not match
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	login, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), login, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Empty(writer)
}

// # Shared Field Rules

// ValidateIdentity checks the login and email shape of a new or edited account.
func ValidateIdentity(v *validate.Validator, login, email string) {
	v.Required(FieldLogin, login).Login(FieldLogin, login).MaxLen(FieldLogin, login, LoginMaxLength)
	ValidateEmail(v, email)
}

// ValidateEmail checks the shape of an email address.
func ValidateEmail(v *validate.Validator, email string) {
	v.Required(FieldEmail, email).
		Email(FieldEmail, email).
		MinLen(FieldEmail, email, EmailMinLength).
		MaxLen(FieldEmail, email, EmailMaxLength)
}

// ValidateProfile checks the optional descriptive fields.
func ValidateProfile(v *validate.Validator, firstName, lastName, langKey string) {
	v.MaxLen(FieldFirstName, firstName, NameMaxLength).MaxLen(FieldLastName, lastName, NameMaxLength)
	if langKey != "" {
		v.MinLen(FieldLangKey, langKey, LangKeyMinLength).MaxLen(FieldLangKey, langKey, LangKeyMaxLength)
	}
}
