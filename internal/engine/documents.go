package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
	"corpdesk/internal/repo"
	"corpdesk/internal/reqctx"
)

// defaultSiglas is used to build correlativos for senders without a
// gerencia of their own.
const defaultSiglas = "COR"

// sweepDocuments advances stale documents before a listing is served:
// en-proceso documents idle past the pending threshold become
// pendiente, and pendiente documents idle past the omitted threshold
// become omitido. Both updates are predicate-guarded, so re-running the
// sweep is harmless.
func (e *Engine) sweepDocuments(ctx context.Context, conn pool.Conn) error {
	now := e.now()
	pendingCutoff := now.Add(-e.Cfg.Lifecycle.PendingAfter.Std())
	if err := e.Repo.AgeDocuments(ctx, conn, domain.DocumentInProgress, domain.DocumentPending, pendingCutoff); err != nil {
		return fmt.Errorf("%w: %v", ErrSweep, err)
	}
	omittedCutoff := now.Add(-e.Cfg.Lifecycle.OmittedAfter.Std())
	if err := e.Repo.AgeDocuments(ctx, conn, domain.DocumentPending, domain.DocumentOmitted, omittedCutoff); err != nil {
		return fmt.Errorf("%w: %v", ErrSweep, err)
	}
	return nil
}

// ListDocuments sweeps the lifecycle first and then returns every
// document visible to the session's tenant. A failed sweep aborts the
// listing so callers never see pre-sweep states.
func (e *Engine) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		if err := e.sweepDocuments(ctx, conn); err != nil {
			return err
		}
		var err error
		docs, err = e.Repo.ListDocuments(ctx, conn)
		return err
	})
	return docs, err
}

// Upload is an attachment carried with a document creation.
type Upload struct {
	Filename string
	Content  []byte
}

type CreateDocumentInput struct {
	Titulo             string
	TipoDocumento      string
	Prioridad          string
	Correlativo        string
	ReceptorID         *uuid.UUID
	ReceptorGerenciaID *int64
	Contenido          *string
	Attachments        []Upload
}

// CreateDocument registers a new document for the authenticated sender,
// assigning a correlativo of the form "SIGLAS NNN YYYY" unless the
// caller supplied one, and storing any attachments on the upload
// filesystem.
func (e *Engine) CreateDocument(ctx context.Context, in CreateDocumentInput) (uuid.UUID, error) {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}

	var id uuid.UUID
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		now := e.now()

		tenantID, haveTenant := reqctx.TenantID(ctx)
		if !haveTenant {
			t, err := e.Repo.TenantForProfile(ctx, conn, userID)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("profile %s has no tenant", userID)
			}
			tenantID = *t
		}

		correlativo := in.Correlativo
		if correlativo == "" {
			siglas, err := e.Repo.GerenciaSiglas(ctx, conn, userID)
			if err != nil {
				return err
			}
			if siglas == "" {
				siglas = defaultSiglas
			}
			count, err := e.Repo.CountCorrelativo(ctx, conn, siglas, tenantID, now.Year())
			if err != nil {
				return err
			}
			correlativo = fmt.Sprintf("%s %03d %d", siglas, count+1, now.Year())
		}

		urls, err := e.storeUploads(in.Attachments)
		if err != nil {
			return err
		}
		var primary *string
		if len(urls) > 0 {
			primary = &urls[0]
		}

		doc := repo.NewDocument{
			Titulo:             in.Titulo,
			Correlativo:        correlativo,
			TipoDocumento:      in.TipoDocumento,
			Prioridad:          in.Prioridad,
			RemitenteID:        userID,
			ReceptorID:         in.ReceptorID,
			ReceptorGerenciaID: in.ReceptorGerenciaID,
			URLArchivo:         primary,
			Contenido:          in.Contenido,
			FechaCreacion:      now,
			FechaCaducidad:     now.Add(e.Cfg.Lifecycle.ExpiryWindow.Std()),
			TenantID:           tenantID,
		}
		id, err = e.Repo.InsertDocument(ctx, conn, doc)
		if err != nil {
			return err
		}
		for _, u := range urls {
			if err := e.Repo.InsertAttachment(ctx, conn, id, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// storeUploads writes each attachment under the uploads directory with
// a random name, keeping the original extension, and returns the
// served URLs in input order.
func (e *Engine) storeUploads(uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	dir := e.Cfg.Server.UploadsDir
	if err := e.Files.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(uploads))
	for _, u := range uploads {
		name := uuid.New().String() + filepath.Ext(u.Filename)
		if err := afero.WriteFile(e.Files, filepath.Join(dir, name), u.Content, 0o644); err != nil {
			return nil, err
		}
		urls = append(urls, "/uploads/"+name)
	}
	return urls, nil
}

func (e *Engine) MarkDocumentRead(ctx context.Context, id uuid.UUID) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.MarkDocumentRead(ctx, conn, id)
	})
}

// UpdateDocumentEstado moves a document to a new state and refreshes
// its activity timestamp, restarting the lifecycle clock.
func (e *Engine) UpdateDocumentEstado(ctx context.Context, id uuid.UUID, estado string) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.UpdateDocumentEstado(ctx, conn, id, estado, e.now())
	})
}

func (e *Engine) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.DeleteDocument(ctx, conn, id)
	})
}

// HideDocument removes a document from one of the caller's trays
// without touching the document itself.
func (e *Engine) HideDocument(ctx context.Context, id uuid.UUID, tray string) error {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return ErrInvalidCredentials
	}
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.HideDocument(ctx, conn, id, userID, tray)
	})
}

// HiddenDocuments returns the caller's hidden document ids per tray.
func (e *Engine) HiddenDocuments(ctx context.Context) (map[string][]uuid.UUID, error) {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	var hidden map[string][]uuid.UUID
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		hidden, err = e.Repo.HiddenDocuments(ctx, conn, userID)
		return err
	})
	return hidden, err
}
