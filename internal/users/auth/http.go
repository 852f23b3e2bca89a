// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dbotia/lab5/internal/platform/constants"
	"github.com/dbotia/lab5/internal/platform/middleware"
	requestutil "github.com/dbotia/lab5/internal/platform/request"
	"github.com/dbotia/lab5/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// RegisterRoutes mounts the endpoints on the /api router.
//
// # Endpoints
//   - POST /authenticate : Exchanges credentials for a token.
//   - GET  /authenticate : Returns the caller's login.
func (handler *Handler) RegisterRoutes(router chi.Router, credentialLimit func(http.Handler) http.Handler) {
	if credentialLimit == nil {
		credentialLimit = func(next http.Handler) http.Handler { return next }
	}

	router.With(credentialLimit).Post("/authenticate", handler.login)
	router.With(middleware.RequireAuth).Get("/authenticate", handler.whoAmI)
}

// # Request Payloads

type loginRequest struct {
	Username   string `json:"username"`
	Login      string `json:"login"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// name accepts either spelling of the login field.
func (input loginRequest) name() string {
	if input.Username != "" {
		return input.Username
	}
	return input.Login
}

/*
POST /api/authenticate.

Description: Verifies credentials and returns a signed session token, both in
the Authorization header and in the body. Missing fields are bad credentials
like any other and get the same 401.

Request:
  - Body: loginRequest (username, password, rememberMe)

Response:
  - 200: Session: {"id_token": "..."}
  - 400: Body is not JSON
  - 401: AUTHENTICATION_FAILED: Unknown login, wrong password or missing field
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Login:      input.name(),
		Password:   input.Password,
		RememberMe: input.RememberMe,
		IPAddress:  middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set(constants.HeaderAuthorization, constants.BearerPrefix+session.IDToken)
	respond.JSON(writer, http.StatusOK, session)
}

/*
GET /api/authenticate.

Response:
  - 200: text/plain login of the caller
  - 401: Authentication required
*/
func (handler *Handler) whoAmI(writer http.ResponseWriter, request *http.Request) {
	login, err := requestutil.RequiredLogin(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Text(writer, login)
}
