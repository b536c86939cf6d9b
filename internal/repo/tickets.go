package repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

func (r Repo) ListTickets(ctx context.Context, conn pool.Conn) ([]domain.Ticket, error) {
	query, args, err := psql.Select(
		"t.id", "t.titulo", "t.descripcion", "t.area", "t.prioridad", "t.estado",
		"t.observaciones", "t.solicitante_id",
		"COALESCE(p.nombre || ' ' || p.apellido, '') AS solicitante_nombre",
		"t.tecnico_id", "t.fecha_creacion").
		From("tickets t").
		LeftJoin("profiles p ON t.solicitante_id = p.id").
		OrderBy("t.fecha_creacion DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.Titulo, &t.Descripcion, &t.Area, &t.Prioridad,
			&t.Estado, &t.Observaciones, &t.SolicitanteID, &t.SolicitanteNombre,
			&t.TecnicoID, &t.FechaCreacion); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// NewTicket is the insertable subset of a ticket.
type NewTicket struct {
	Titulo        string
	Descripcion   string
	Area          string
	Prioridad     string
	Estado        string
	Observaciones *string
	SolicitanteID uuid.UUID
}

func (r Repo) InsertTicket(ctx context.Context, conn pool.Conn, t NewTicket) (domain.Ticket, error) {
	query, args, err := psql.Insert("tickets").
		Columns("titulo", "descripcion", "area", "prioridad", "estado",
			"observaciones", "solicitante_id").
		Values(t.Titulo, t.Descripcion, t.Area, t.Prioridad, t.Estado,
			t.Observaciones, t.SolicitanteID).
		Suffix("RETURNING id, fecha_creacion").
		ToSql()
	if err != nil {
		return domain.Ticket{}, err
	}
	solicitante := t.SolicitanteID
	created := domain.Ticket{
		Titulo:        t.Titulo,
		Descripcion:   t.Descripcion,
		Area:          t.Area,
		Prioridad:     t.Prioridad,
		Estado:        t.Estado,
		Observaciones: t.Observaciones,
		SolicitanteID: &solicitante,
	}
	if err := conn.QueryRow(ctx, query, args...).Scan(&created.ID, &created.FechaCreacion); err != nil {
		return domain.Ticket{}, err
	}
	return created, nil
}

// TicketUpdate carries the optional fields of a ticket update; nil means
// leave unchanged.
type TicketUpdate struct {
	Titulo        *string
	Descripcion   *string
	Estado        *string
	Prioridad     *string
	Observaciones *string
	TecnicoID     *uuid.UUID
}

func (r Repo) UpdateTicket(ctx context.Context, conn pool.Conn, id int64, upd TicketUpdate) error {
	builder := psql.Update("tickets")
	changed := false
	set := func(column string, value any) {
		builder = builder.Set(column, value)
		changed = true
	}
	if upd.Titulo != nil {
		set("titulo", *upd.Titulo)
	}
	if upd.Descripcion != nil {
		set("descripcion", *upd.Descripcion)
	}
	if upd.Estado != nil {
		set("estado", *upd.Estado)
	}
	if upd.Prioridad != nil {
		set("prioridad", *upd.Prioridad)
	}
	if upd.Observaciones != nil {
		set("observaciones", *upd.Observaciones)
	}
	if upd.TecnicoID != nil {
		set("tecnico_id", *upd.TecnicoID)
	}
	if !changed {
		return nil
	}
	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
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

func (r Repo) DeleteTicket(ctx context.Context, conn pool.Conn, id int64) error {
	query, args, err := psql.Delete("tickets").Where(sq.Eq{"id": id}).ToSql()
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
