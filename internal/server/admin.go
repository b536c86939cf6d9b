package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/engine"
	"corpdesk/internal/repo"
)

func registerGerencias(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-gerencias",
		Method:      http.MethodGet,
		Path:        "/gerencias",
		Summary:     "List gerencias",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Gerencia `json:"body"`
	}, error) {
		items, err := e.ListGerencias(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Gerencia `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-gerencia",
		Method:        http.MethodPost,
		Path:          "/gerencias",
		Summary:       "Create gerencia",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateGerenciaRequest `json:"body"`
	}) (*struct {
		Body domain.Gerencia `json:"body"`
	}, error) {
		g, err := e.CreateGerencia(ctx, input.Body.Nombre, input.Body.Siglas, input.Body.Categoria)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gerencia `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-gerencia",
		Method:      http.MethodPatch,
		Path:        "/gerencias/{id}",
		Summary:     "Update gerencia",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body UpdateGerenciaRequest `json:"body"`
	}) (*struct{}, error) {
		upd := repo.GerenciaUpdate{
			Nombre:    input.Body.Nombre,
			Siglas:    input.Body.Siglas,
			Categoria: input.Body.Categoria,
		}
		if err := e.UpdateGerencia(ctx, input.ID, upd); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-gerencia",
		Method:      http.MethodDelete,
		Path:        "/gerencias/{id}",
		Summary:     "Delete gerencia",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteGerencia(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUsers(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-usuarios",
		Method:      http.MethodGet,
		Path:        "/usuarios",
		Summary:     "List users",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Profile `json:"body"`
	}, error) {
		items, err := e.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Profile `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-usuario",
		Method:      http.MethodGet,
		Path:        "/usuarios/{id}",
		Summary:     "Get user by id",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID uuid.UUID `path:"id"`
	}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		p, err := e.User(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-usuario-rol",
		Method:      http.MethodPatch,
		Path:        "/usuarios/{id}/rol",
		Summary:     "Change user role",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   uuid.UUID `path:"id"`
		Body struct {
			RolID int64 `json:"rol_id" minimum:"1"`
		} `json:"body"`
	}) (*struct{}, error) {
		if err := e.UpdateUserRole(ctx, input.ID, input.Body.RolID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTickets(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tickets",
		Method:      http.MethodGet,
		Path:        "/tickets",
		Summary:     "List tickets",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Ticket `json:"body"`
	}, error) {
		items, err := e.ListTickets(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Ticket `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-ticket",
		Method:        http.MethodPost,
		Path:          "/tickets",
		Summary:       "Create ticket",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateTicketRequest `json:"body"`
	}) (*struct {
		Body domain.Ticket `json:"body"`
	}, error) {
		prioridad := input.Body.Prioridad
		if prioridad == "" {
			prioridad = "media"
		}
		t, err := e.CreateTicket(ctx, engine.CreateTicketInput{
			Titulo:        input.Body.Titulo,
			Descripcion:   input.Body.Descripcion,
			Area:          input.Body.Area,
			Prioridad:     prioridad,
			Observaciones: input.Body.Observaciones,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ticket `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-ticket",
		Method:      http.MethodPatch,
		Path:        "/tickets/{id}",
		Summary:     "Update ticket",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body UpdateTicketRequest `json:"body"`
	}) (*struct{}, error) {
		upd := repo.TicketUpdate{
			Titulo:        input.Body.Titulo,
			Descripcion:   input.Body.Descripcion,
			Estado:        input.Body.Estado,
			Prioridad:     input.Body.Prioridad,
			Observaciones: input.Body.Observaciones,
			TecnicoID:     input.Body.TecnicoID,
		}
		if err := e.UpdateTicket(ctx, input.ID, upd); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-ticket",
		Method:      http.MethodDelete,
		Path:        "/tickets/{id}",
		Summary:     "Delete ticket",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTicket(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSecurityLogs(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-logs-seguridad",
		Method:      http.MethodGet,
		Path:        "/logs-seguridad",
		Summary:     "List security logs",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		UsuarioID string `query:"usuario_id"`
	}) (*struct {
		Body []domain.SecurityLog `json:"body"`
	}, error) {
		var filter *uuid.UUID
		if input.UsuarioID != "" {
			id, err := uuid.Parse(input.UsuarioID)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid usuario_id", nil)
			}
			filter = &id
		}
		items, err := e.ListSecurityLogs(ctx, filter)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SecurityLog `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-log-seguridad",
		Method:        http.MethodPost,
		Path:          "/logs-seguridad",
		Summary:       "Record a security event",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateSecurityLogRequest `json:"body"`
	}) (*struct{}, error) {
		if input.Body.UsuarioID == uuid.Nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "usuario_id is required", nil)
		}
		evento := input.Body.Evento
		if evento == "" {
			evento = "evento"
		}
		nivel := input.Body.Nivel
		if nivel == "" {
			nivel = "info"
		}
		ip := input.Body.IPOrigen
		if ip == "" {
			ip = ipFromContext(ctx)
		}
		if err := e.RecordSecurityLog(ctx, input.Body.UsuarioID, evento, nivel, ip); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAnnouncement(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-announcement",
		Method:      http.MethodGet,
		Path:        "/announcement",
		Summary:     "Get announcement banner",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Announcement `json:"body"`
	}, error) {
		a, err := e.Announcement(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Announcement `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-announcement",
		Method:      http.MethodPut,
		Path:        "/announcement",
		Summary:     "Set announcement banner",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body domain.Announcement `json:"body"`
	}) (*struct{}, error) {
		if err := e.SetAnnouncement(ctx, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
