package repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

var documentColumns = []string{
	"d.id",
	"COALESCE(d.titulo, 'Sin Asunto') AS titulo",
	"d.correlativo",
	"d.tipo_documento",
	"d.estado",
	"d.prioridad",
	"d.remitente_id",
	"COALESCE(p_rem.nombre || ' ' || p_rem.apellido, 'Desconocido') AS remitente_nombre",
	"d.receptor_id",
	"COALESCE(p_rec.nombre || ' ' || p_rec.apellido, g.nombre, 'Sin Asignar') AS receptor_nombre",
	"d.receptor_gerencia_id",
	"COALESCE(g.nombre, 'Mensaje Personal') AS gerencia_nombre",
	"d.url_archivo",
	"(SELECT array_agg(da.url_archivo) FROM documento_adjuntos da WHERE da.documento_id = d.id) AS archivos",
	"d.contenido",
	"d.leido",
	"d.fecha_creacion",
	"d.fecha_caducidad",
	"d.fecha_ultima_actividad",
	"d.tenant_id",
}

// AgeDocuments is one edge of the lifecycle automaton: a single
// predicate-guarded bulk update moving every row in `from` whose last
// activity predates the cutoff into `to`. Re-running it with no time
// elapsed matches nothing, so the sweep is idempotent.
func (r Repo) AgeDocuments(ctx context.Context, conn pool.Conn, from, to string, cutoff time.Time) error {
	query, args, err := psql.Update("documentos").
		Set("estado", to).
		Where(sq.Eq{"estado": from}).
		Where(sq.Lt{"fecha_ultima_actividad": cutoff}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}

func (r Repo) ListDocuments(ctx context.Context, conn pool.Conn) ([]domain.Document, error) {
	query, args, err := psql.Select(documentColumns...).
		From("documentos d").
		LeftJoin("profiles p_rem ON d.remitente_id = p_rem.id").
		LeftJoin("profiles p_rec ON d.receptor_id = p_rec.id").
		LeftJoin("gerencias g ON d.receptor_gerencia_id = g.id").
		OrderBy("d.fecha_creacion DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(
			&d.ID, &d.Titulo, &d.Correlativo, &d.TipoDocumento, &d.Estado,
			&d.Prioridad, &d.RemitenteID, &d.RemitenteNombre, &d.ReceptorID,
			&d.ReceptorNombre, &d.ReceptorGerenciaID, &d.GerenciaNombre,
			&d.URLArchivo, &d.Archivos, &d.Contenido, &d.Leido,
			&d.FechaCreacion, &d.FechaCaducidad, &d.UltimaActividad, &d.TenantID,
		); err != nil {
			return nil, err
		}
		if d.Archivos == nil {
			if d.URLArchivo != nil {
				d.Archivos = []string{*d.URLArchivo}
			} else {
				d.Archivos = []string{}
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// NewDocument is the insertable subset of a document.
type NewDocument struct {
	Titulo             string
	Correlativo        string
	TipoDocumento      string
	Prioridad          string
	RemitenteID        uuid.UUID
	ReceptorID         *uuid.UUID
	ReceptorGerenciaID *int64
	URLArchivo         *string
	Contenido          *string
	FechaCreacion      time.Time
	FechaCaducidad     time.Time
	TenantID           uuid.UUID
}

func (r Repo) InsertDocument(ctx context.Context, conn pool.Conn, doc NewDocument) (uuid.UUID, error) {
	query, args, err := psql.Insert("documentos").
		Columns("titulo", "correlativo", "tipo_documento", "estado", "prioridad",
			"remitente_id", "receptor_id", "receptor_gerencia_id", "url_archivo",
			"contenido", "leido", "fecha_creacion", "fecha_caducidad",
			"fecha_ultima_actividad", "tenant_id", "user_id").
		Values(doc.Titulo, doc.Correlativo, doc.TipoDocumento, domain.DocumentInProgress,
			doc.Prioridad, doc.RemitenteID, doc.ReceptorID, doc.ReceptorGerenciaID,
			doc.URLArchivo, doc.Contenido, false, doc.FechaCreacion, doc.FechaCaducidad,
			doc.FechaCreacion, doc.TenantID, doc.RemitenteID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	if err := conn.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r Repo) InsertAttachment(ctx context.Context, conn pool.Conn, documentID uuid.UUID, url string) error {
	query, args, err := psql.Insert("documento_adjuntos").
		Columns("documento_id", "url_archivo").
		Values(documentID, url).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}

// CountCorrelativo counts this year's documents whose correlativo starts
// with the gerencia siglas, for sequence generation.
func (r Repo) CountCorrelativo(ctx context.Context, conn pool.Conn, siglas string, tenantID uuid.UUID, year int) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("documentos").
		Where(sq.Expr("correlativo LIKE ? || '%'", siglas)).
		Where(sq.Eq{"tenant_id": tenantID}).
		Where(sq.Expr("EXTRACT(YEAR FROM fecha_creacion) = ?", year)).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r Repo) MarkDocumentRead(ctx context.Context, conn pool.Conn, id uuid.UUID) error {
	query, args, err := psql.Update("documentos").
		Set("leido", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDocumentEstado is the explicit status path; it touches the activity
// timestamp so the sweep measures inactivity from this change.
func (r Repo) UpdateDocumentEstado(ctx context.Context, conn pool.Conn, id uuid.UUID, estado string, at time.Time) error {
	query, args, err := psql.Update("documentos").
		Set("estado", estado).
		Set("fecha_ultima_actividad", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteDocument(ctx context.Context, conn pool.Conn, id uuid.UUID) error {
	for _, table := range []string{"documento_adjuntos", "documento_ocultos"} {
		query, args, err := psql.Delete(table).Where(sq.Eq{"documento_id": id}).ToSql()
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	query, args, err := psql.Delete("documentos").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HideDocument removes a document from one of a user's trays without
// touching the document itself. Hiding twice is a no-op.
func (r Repo) HideDocument(ctx context.Context, conn pool.Conn, documentID, userID uuid.UUID, tray string) error {
	query, args, err := psql.Insert("documento_ocultos").
		Columns("documento_id", "usuario_id", "bandeja").
		Values(documentID, userID, tray).
		Suffix("ON CONFLICT (documento_id, usuario_id, bandeja) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}

// HiddenDocuments returns the ids a user has hidden, keyed by tray.
func (r Repo) HiddenDocuments(ctx context.Context, conn pool.Conn, userID uuid.UUID) (map[string][]uuid.UUID, error) {
	query, args, err := psql.Select("documento_id", "bandeja").
		From("documento_ocultos").
		Where(sq.Eq{"usuario_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hidden := map[string][]uuid.UUID{
		domain.TrayInbox: {},
		domain.TraySent:  {},
	}
	for rows.Next() {
		var id uuid.UUID
		var tray string
		if err := rows.Scan(&id, &tray); err != nil {
			return nil, err
		}
		hidden[tray] = append(hidden[tray], id)
	}
	return hidden, rows.Err()
}
