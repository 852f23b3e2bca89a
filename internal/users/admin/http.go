// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin provides the user-management endpoints reserved to ROLE_ADMIN.

It is a delivery layer only: every rule (uniqueness, the activation invariant,
known authorities) lives in the account engine.
*/
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dbotia/lab5/internal/platform/apperr"
	"github.com/dbotia/lab5/internal/platform/middleware"
	requestutil "github.com/dbotia/lab5/internal/platform/request"
	"github.com/dbotia/lab5/internal/platform/respond"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/platform/validate"
	"github.com/dbotia/lab5/internal/users/account"
	"github.com/dbotia/lab5/pkg/pagination"
)

// Handler implements the /api/users endpoints.
type Handler struct {
	accountService *account.Service
}

// NewHandler constructs a new admin [Handler].
func NewHandler(service *account.Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the user-management router, guarded by ROLE_ADMIN.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuthority(sec.RoleAdmin))

	router.Post("/", handler.createUser)
	router.Put("/", handler.updateUser)
	router.Get("/", handler.listUsers)
	router.Get("/authorities", handler.listAuthorities)
	router.Get("/{login}", handler.getUser)
	router.Delete("/{login}", handler.deleteUser)

	return router
}

// userRequest is the payload of both create and update.
type userRequest struct {
	ID          string   `json:"id"`
	Login       string   `json:"login"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	LangKey     string   `json:"langKey"`
	Activated   bool     `json:"activated"`
	Authorities []string `json:"authorities"`
}

func (input userRequest) validate(requireID bool) error {
	v := &validate.Validator{}
	if requireID {
		v.Required(account.FieldID, input.ID).UUID(account.FieldID, input.ID)
	} else {
		v.Custom(account.FieldID, input.ID != "", "A new user cannot already have an ID")
	}
	account.ValidateIdentity(v, input.Login, input.Email)
	account.ValidateProfile(v, input.FirstName, input.LastName, input.LangKey)
	return v.Err()
}

func (input userRequest) toInput() account.UserInput {
	return account.UserInput{
		ID:          input.ID,
		Login:       input.Login,
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		LangKey:     input.LangKey,
		Activated:   input.Activated,
		Authorities: input.Authorities,
	}
}

/*
POST /api/users.

Description: Creates an active account and mails the user an invitation to
choose a password.

Response:
  - 201: Account: The created account
  - 400: LOGIN_ALREADY_USED, EMAIL_ALREADY_USED, UNKNOWN_AUTHORITY or VALIDATION_ERROR
  - 403: Caller is not an administrator
*/
func (handler *Handler) createUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input userRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := input.validate(false); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.accountService.CreateUser(request.Context(), actor, input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Location", "/api/users/"+created.Login)
	respond.Created(writer, created)
}

/*
PUT /api/users.

Response:
  - 200: Account: The updated account
  - 400: LOGIN_ALREADY_USED, EMAIL_ALREADY_USED, UNKNOWN_AUTHORITY or VALIDATION_ERROR
  - 404: ACCOUNT_NOT_FOUND
*/
func (handler *Handler) updateUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input userRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := input.validate(true); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.accountService.UpdateUser(request.Context(), actor, input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

/*
GET /api/users?page={page}&size={size}.

Response:
  - 200: []Account with paging metadata and X-Total-Count
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	accounts, total, err := handler.accountService.ListUsers(request.Context(), params.Offset(), params.Size)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Page(writer, accounts, pagination.NewMeta(params, total))
}

// GET /api/users/authorities.
func (handler *Handler) listAuthorities(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.accountService.Authorities())
}

/*
GET /api/users/{login}.

Response:
  - 200: Account
  - 404: ACCOUNT_NOT_FOUND
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	found, err := handler.accountService.GetUser(request.Context(), requestutil.Param(request, "login"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

/*
DELETE /api/users/{login}.

Response:
  - 200: Deleted
  - 400: An administrator cannot delete their own account
  - 404: ACCOUNT_NOT_FOUND
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	login := account.CanonicalLogin(requestutil.Param(request, "login"))
	if login == actor {
		respond.Error(writer, request, apperr.BadRequest("You cannot delete your own account"))
		return
	}

	if err := handler.accountService.DeleteUser(request.Context(), actor, login); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Empty(writer)
}
