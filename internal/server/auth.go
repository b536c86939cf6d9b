package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/engine"
)

func registerAuth(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register user",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		p, err := e.Register(ctx, engine.RegisterInput{
			Username: input.Body.Username,
			Nombre:   input.Body.Nombre,
			Apellido: input.Body.Apellido,
			Email:    input.Body.Email,
			Password: input.Body.Password,
			Gerencia: input.Body.Gerencia,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		res, err := e.Login(ctx, input.Body.Login, input.Body.Password, ipFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{
			AccessToken: res.Token,
			TokenType:   "bearer",
			User:        res.Profile,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		p, err := e.Me(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "switch-organization",
		Method:      http.MethodPost,
		Path:        "/auth/switch-organization",
		Summary:     "Switch active organization",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			OrganizationID uuid.UUID `json:"organization_id"`
		} `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		res, err := e.SwitchOrganization(ctx, input.Body.OrganizationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{
			AccessToken: res.Token,
			TokenType:   "bearer",
			User:        res.Profile,
		}}, nil
	})
}
