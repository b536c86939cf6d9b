package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"corpdesk/internal/engine"
)

func registerDocuments(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-documentos",
		Method:      http.MethodGet,
		Path:        "/documentos",
		Summary:     "List documents",
		Errors: []int{
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []DocumentResponse `json:"body"`
	}, error) {
		docs, err := e.ListDocuments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DocumentResponse `json:"body"`
		}{Body: mapDocuments(docs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-documento",
		Method:        http.MethodPost,
		Path:          "/documentos",
		Summary:       "Create document",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateDocumentRequest `json:"body"`
	}) (*struct {
		Body struct {
			ID uuid.UUID `json:"id"`
		} `json:"body"`
	}, error) {
		prioridad := input.Body.Prioridad
		if prioridad == "" {
			prioridad = "media"
		}
		attachments := make([]engine.Upload, 0, len(input.Body.Archivos))
		for _, a := range input.Body.Archivos {
			attachments = append(attachments, engine.Upload{
				Filename: a.Filename,
				Content:  a.Content,
			})
		}
		id, err := e.CreateDocument(ctx, engine.CreateDocumentInput{
			Titulo:             input.Body.Titulo,
			Correlativo:        input.Body.Correlativo,
			TipoDocumento:      input.Body.TipoDocumento,
			Prioridad:          prioridad,
			ReceptorID:         input.Body.ReceptorID,
			ReceptorGerenciaID: input.Body.ReceptorGerenciaID,
			Contenido:          input.Body.Contenido,
			Attachments:        attachments,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				ID uuid.UUID `json:"id"`
			} `json:"body"`
		}{}
		out.Body.ID = id
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-documento-leido",
		Method:      http.MethodPatch,
		Path:        "/documentos/{id}/leido",
		Summary:     "Mark document read",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID uuid.UUID `path:"id"`
	}) (*struct{}, error) {
		if err := e.MarkDocumentRead(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-documento-estado",
		Method:      http.MethodPatch,
		Path:        "/documentos/{id}/estado",
		Summary:     "Update document state",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   uuid.UUID `path:"id"`
		Body struct {
			Estado string `json:"estado" enum:"en-proceso,pendiente,omitido,firmado,rechazado"`
		} `json:"body"`
	}) (*struct{}, error) {
		if err := e.UpdateDocumentEstado(ctx, input.ID, input.Body.Estado); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-documento",
		Method:      http.MethodDelete,
		Path:        "/documentos/{id}",
		Summary:     "Delete document",
		Errors: []int{
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID uuid.UUID `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteDocument(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ocultar-documento",
		Method:      http.MethodPost,
		Path:        "/documentos/{id}/ocultar",
		Summary:     "Hide document from a tray",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   uuid.UUID `path:"id"`
		Body struct {
			Bandeja string `json:"bandeja" enum:"inbox,sent"`
		} `json:"body"`
	}) (*struct{}, error) {
		if err := e.HideDocument(ctx, input.ID, input.Body.Bandeja); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mis-documentos-ocultos",
		Method:      http.MethodGet,
		Path:        "/documentos/mis-ocultos",
		Summary:     "Hidden documents per tray",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string][]uuid.UUID `json:"body"`
	}, error) {
		hidden, err := e.HiddenDocuments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if hidden == nil {
			hidden = map[string][]uuid.UUID{}
		}
		return &struct {
			Body map[string][]uuid.UUID `json:"body"`
		}{Body: hidden}, nil
	})
}
