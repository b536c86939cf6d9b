package engine

import (
	"context"

	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
	"corpdesk/internal/repo"
	"corpdesk/internal/reqctx"
)

func (e *Engine) ListGerencias(ctx context.Context) ([]domain.Gerencia, error) {
	var out []domain.Gerencia
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.ListGerencias(ctx, conn)
		return err
	})
	return out, err
}

func (e *Engine) CreateGerencia(ctx context.Context, nombre, siglas, categoria string) (domain.Gerencia, error) {
	var out domain.Gerencia
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.InsertGerencia(ctx, conn, nombre, siglas, categoria)
		return err
	})
	return out, err
}

func (e *Engine) UpdateGerencia(ctx context.Context, id int64, upd repo.GerenciaUpdate) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.UpdateGerencia(ctx, conn, id, upd)
	})
}

func (e *Engine) DeleteGerencia(ctx context.Context, id int64) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.DeleteGerencia(ctx, conn, id)
	})
}

func (e *Engine) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	var out []domain.Profile
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.ListProfiles(ctx, conn)
		return err
	})
	return out, err
}

// User returns one profile by id.
func (e *Engine) User(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	var out domain.Profile
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.GetProfile(ctx, conn, id)
		return err
	})
	return out, err
}

func (e *Engine) UpdateUserRole(ctx context.Context, id uuid.UUID, rolID int64) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.UpdateProfileRole(ctx, conn, id, rolID)
	})
}

func (e *Engine) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.ListTickets(ctx, conn)
		return err
	})
	return out, err
}

type CreateTicketInput struct {
	Titulo        string
	Descripcion   string
	Area          string
	Prioridad     string
	Observaciones *string
}

// CreateTicket opens a support ticket on behalf of the caller.
func (e *Engine) CreateTicket(ctx context.Context, in CreateTicketInput) (domain.Ticket, error) {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return domain.Ticket{}, ErrInvalidCredentials
	}
	var out domain.Ticket
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.InsertTicket(ctx, conn, repo.NewTicket{
			Titulo:        in.Titulo,
			Descripcion:   in.Descripcion,
			Area:          in.Area,
			Prioridad:     in.Prioridad,
			Estado:        "abierto",
			Observaciones: in.Observaciones,
			SolicitanteID: userID,
		})
		return err
	})
	return out, err
}

func (e *Engine) UpdateTicket(ctx context.Context, id int64, upd repo.TicketUpdate) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.UpdateTicket(ctx, conn, id, upd)
	})
}

func (e *Engine) DeleteTicket(ctx context.Context, id int64) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.DeleteTicket(ctx, conn, id)
	})
}

// ListSecurityLogs returns recent audit events, optionally limited to
// one user.
func (e *Engine) ListSecurityLogs(ctx context.Context, userID *uuid.UUID) ([]domain.SecurityLog, error) {
	var out []domain.SecurityLog
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.ListSecurityLogs(ctx, conn, userID)
		return err
	})
	return out, err
}

// RecordSecurityLog writes an audit event on behalf of a known user.
// Unlike the login trail this is caller-driven, so failures surface.
func (e *Engine) RecordSecurityLog(ctx context.Context, userID uuid.UUID, evento, nivel, ip string) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.InsertSecurityLog(ctx, conn, &userID, evento, nivel, ip)
	})
}

func (e *Engine) Announcement(ctx context.Context) (domain.Announcement, error) {
	var out domain.Announcement
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		out, err = e.Repo.GetAnnouncement(ctx, conn)
		return err
	})
	return out, err
}

func (e *Engine) SetAnnouncement(ctx context.Context, a domain.Announcement) error {
	return e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		return e.Repo.PutAnnouncement(ctx, conn, a)
	})
}
