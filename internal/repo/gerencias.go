package repo

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

func (r Repo) ListGerencias(ctx context.Context, conn pool.Conn) ([]domain.Gerencia, error) {
	query, args, err := psql.Select("id", "nombre", "COALESCE(siglas, '')", "COALESCE(categoria, 'General')").
		From("gerencias").
		OrderBy("categoria", "nombre").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gerencias []domain.Gerencia
	for rows.Next() {
		var g domain.Gerencia
		if err := rows.Scan(&g.ID, &g.Nombre, &g.Siglas, &g.Categoria); err != nil {
			return nil, err
		}
		gerencias = append(gerencias, g)
	}
	return gerencias, rows.Err()
}

func (r Repo) InsertGerencia(ctx context.Context, conn pool.Conn, nombre, siglas, categoria string) (domain.Gerencia, error) {
	query, args, err := psql.Insert("gerencias").
		Columns("nombre", "siglas", "categoria").
		Values(nombre, siglas, categoria).
		Suffix("RETURNING id, nombre, COALESCE(siglas, ''), COALESCE(categoria, 'General')").
		ToSql()
	if err != nil {
		return domain.Gerencia{}, err
	}
	var g domain.Gerencia
	err = conn.QueryRow(ctx, query, args...).Scan(&g.ID, &g.Nombre, &g.Siglas, &g.Categoria)
	return g, err
}

// GerenciaUpdate carries the optional fields of a gerencia update; nil
// means leave unchanged.
type GerenciaUpdate struct {
	Nombre    *string
	Siglas    *string
	Categoria *string
}

func (r Repo) UpdateGerencia(ctx context.Context, conn pool.Conn, id int64, upd GerenciaUpdate) error {
	builder := psql.Update("gerencias")
	changed := false
	if upd.Nombre != nil {
		builder = builder.Set("nombre", *upd.Nombre)
		changed = true
	}
	if upd.Siglas != nil {
		builder = builder.Set("siglas", *upd.Siglas)
		changed = true
	}
	if upd.Categoria != nil {
		builder = builder.Set("categoria", *upd.Categoria)
		changed = true
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

func (r Repo) DeleteGerencia(ctx context.Context, conn pool.Conn, id int64) error {
	query, args, err := psql.Delete("gerencias").Where(sq.Eq{"id": id}).ToSql()
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

// EnsureGerencia returns the id of the gerencia with the given name,
// creating it when missing.
func (r Repo) EnsureGerencia(ctx context.Context, conn pool.Conn, nombre string) (int64, error) {
	query, args, err := psql.Select("id").
		From("gerencias").
		Where(sq.Eq{"nombre": nombre}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	err = conn.QueryRow(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err := notFoundIfNoRows(err); err != ErrNotFound {
		return 0, err
	}

	runes := []rune(nombre)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	siglas := strings.ToUpper(string(runes))
	g, err := r.InsertGerencia(ctx, conn, nombre, siglas, "General")
	if err != nil {
		return 0, err
	}
	return g.ID, nil
}
