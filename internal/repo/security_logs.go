package repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

const securityLogLimit = 500

func (r Repo) InsertSecurityLog(ctx context.Context, conn pool.Conn, userID *uuid.UUID, evento, nivel, ip string) error {
	query, args, err := psql.Insert("logs_seguridad").
		Columns("usuario_id", "evento", "nivel", "ip_origen").
		Values(userID, evento, nivel, ip).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}

func (r Repo) ListSecurityLogs(ctx context.Context, conn pool.Conn, userID *uuid.UUID) ([]domain.SecurityLog, error) {
	builder := psql.Select(
		"l.id", "l.evento", "l.nivel", "l.ip_origen", "l.fecha",
		"l.usuario_id",
		"COALESCE(p.nombre || ' ' || p.apellido, 'Sistema') AS usuario_nombre").
		From("logs_seguridad l").
		LeftJoin("profiles p ON l.usuario_id = p.id").
		OrderBy("l.fecha DESC").
		Limit(securityLogLimit)
	if userID != nil {
		builder = builder.Where(sq.Eq{"l.usuario_id": *userID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.SecurityLog
	for rows.Next() {
		var l domain.SecurityLog
		if err := rows.Scan(&l.ID, &l.Evento, &l.Nivel, &l.IPOrigen, &l.Fecha,
			&l.UsuarioID, &l.Username); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
