package repo

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

var profileColumns = []string{
	"p.id",
	"p.username",
	"p.nombre",
	"p.apellido",
	"p.email",
	"p.rol_id",
	"COALESCE(r.nombre_rol, 'Usuario') AS role",
	"p.gerencia_id",
	"COALESCE(g.nombre, '') AS gerencia_depto",
	"p.estado",
	"p.tenant_id",
}

func profileQuery() sq.SelectBuilder {
	return psql.Select(profileColumns...).
		From("profiles p").
		LeftJoin("gerencias g ON p.gerencia_id = g.id").
		LeftJoin("roles r ON p.rol_id = r.id")
}

func scanProfile(row interface{ Scan(...any) error }) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Nombre, &p.Apellido, &p.Email,
		&p.RolID, &p.RolNombre, &p.GerenciaID, &p.GerenciaNombre, &p.Estado, &p.TenantID)
	return p, notFoundIfNoRows(err)
}

func (r Repo) GetProfile(ctx context.Context, conn pool.Conn, id uuid.UUID) (domain.Profile, error) {
	query, args, err := profileQuery().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return domain.Profile{}, err
	}
	return scanProfile(conn.QueryRow(ctx, query, args...))
}

func (r Repo) ListProfiles(ctx context.Context, conn pool.Conn) ([]domain.Profile, error) {
	query, args, err := profileQuery().OrderBy("p.nombre", "p.apellido").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetCredentials loads the profile plus password hash for an active account
// matching the username or email login.
func (r Repo) GetCredentials(ctx context.Context, conn pool.Conn, login string) (domain.Profile, error) {
	query, args, err := psql.Select(append(profileColumns, "p.password_hash")...).
		From("profiles p").
		LeftJoin("gerencias g ON p.gerencia_id = g.id").
		LeftJoin("roles r ON p.rol_id = r.id").
		Where(sq.Or{sq.Eq{"p.username": login}, sq.Eq{"p.email": login}}).
		Where(sq.Eq{"p.estado": true}).
		ToSql()
	if err != nil {
		return domain.Profile{}, err
	}
	var p domain.Profile
	err = conn.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Username, &p.Nombre, &p.Apellido, &p.Email,
		&p.RolID, &p.RolNombre, &p.GerenciaID, &p.GerenciaNombre,
		&p.Estado, &p.TenantID, &p.PasswordHash)
	return p, notFoundIfNoRows(err)
}

func (r Repo) ProfileExists(ctx context.Context, conn pool.Conn, username, email string) (bool, error) {
	query, args, err := psql.Select("1").
		From("profiles").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = conn.QueryRow(ctx, query, args...).Scan(&one)
	if err := notFoundIfNoRows(err); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewProfile is the insertable subset of a profile.
type NewProfile struct {
	Username     string
	Nombre       string
	Apellido     string
	Email        string
	PasswordHash string
	RolID        int64
	GerenciaID   *int64
	TenantID     *uuid.UUID
}

func (r Repo) InsertProfile(ctx context.Context, conn pool.Conn, p NewProfile) (uuid.UUID, error) {
	query, args, err := psql.Insert("profiles").
		Columns("username", "nombre", "apellido", "email", "password_hash",
			"rol_id", "gerencia_id", "estado", "tenant_id").
		Values(p.Username, p.Nombre, p.Apellido, p.Email, p.PasswordHash,
			p.RolID, p.GerenciaID, true, p.TenantID).
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

func (r Repo) UpdateProfileRole(ctx context.Context, conn pool.Conn, id uuid.UUID, rolID int64) error {
	query, args, err := psql.Update("profiles").
		Set("rol_id", rolID).
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

func (r Repo) TouchLastLogin(ctx context.Context, conn pool.Conn, id uuid.UUID, at time.Time) error {
	query, args, err := psql.Update("profiles").
		Set("ultima_conexion", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}

// GerenciaSiglas returns the siglas of the user's gerencia, empty when the
// user has none assigned.
func (r Repo) GerenciaSiglas(ctx context.Context, conn pool.Conn, userID uuid.UUID) (string, error) {
	query, args, err := psql.Select("COALESCE(g.siglas, '')").
		From("profiles p").
		LeftJoin("gerencias g ON p.gerencia_id = g.id").
		Where(sq.Eq{"p.id": userID}).
		ToSql()
	if err != nil {
		return "", err
	}
	var siglas string
	err = conn.QueryRow(ctx, query, args...).Scan(&siglas)
	return siglas, notFoundIfNoRows(err)
}

// TenantForProfile resolves the tenant a user belongs to, for tokens that
// did not carry one.
func (r Repo) TenantForProfile(ctx context.Context, conn pool.Conn, userID uuid.UUID) (*uuid.UUID, error) {
	query, args, err := psql.Select("tenant_id").
		From("profiles").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var tenantID *uuid.UUID
	err = conn.QueryRow(ctx, query, args...).Scan(&tenantID)
	return tenantID, notFoundIfNoRows(err)
}

// MembershipRole returns the user's role inside an organization, or
// ErrNotFound when the user is not a member.
func (r Repo) MembershipRole(ctx context.Context, conn pool.Conn, userID, orgID uuid.UUID) (string, error) {
	query, args, err := psql.Select("role").
		From("user_organizations").
		Where(sq.Eq{"user_id": userID, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return "", err
	}
	var role string
	err = conn.QueryRow(ctx, query, args...).Scan(&role)
	return role, notFoundIfNoRows(err)
}
