package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"corpdesk/internal/domain"
	"corpdesk/internal/identity"
	"corpdesk/internal/pool"
	"corpdesk/internal/repo"
	"corpdesk/internal/reqctx"
)

// defaultRoleID is the role assigned to self-registered users.
const defaultRoleID = 3

type RegisterInput struct {
	Username string
	Nombre   string
	Apellido string
	Email    string
	Password string
	Gerencia string
}

// Register creates a profile with the default role. The gerencia is
// created on the fly when the given name is not known yet.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (domain.Profile, error) {
	var profile domain.Profile
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		exists, err := e.Repo.ProfileExists(ctx, conn, in.Username, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrUserExists
		}

		var gerenciaID *int64
		if in.Gerencia != "" {
			id, err := e.Repo.EnsureGerencia(ctx, conn, in.Gerencia)
			if err != nil {
				return err
			}
			gerenciaID = &id
		}

		hash, err := e.Passwords.Hash(in.Password)
		if err != nil {
			return err
		}

		id, err := e.Repo.InsertProfile(ctx, conn, repo.NewProfile{
			Username:     in.Username,
			Nombre:       in.Nombre,
			Apellido:     in.Apellido,
			Email:        in.Email,
			PasswordHash: hash,
			RolID:        defaultRoleID,
			GerenciaID:   gerenciaID,
		})
		if err != nil {
			return err
		}
		profile, err = e.Repo.GetProfile(ctx, conn, id)
		return err
	})
	return profile, err
}

type LoginResult struct {
	Token   string
	Profile domain.Profile
}

// Login authenticates by username or email. Failed and successful
// attempts both leave a security log entry; failures are reported
// uniformly as ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, login, password, ip string) (LoginResult, error) {
	var result LoginResult
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		p, err := e.Repo.GetCredentials(ctx, conn, login)
		if errors.Is(err, repo.ErrNotFound) {
			e.logSecurity(ctx, conn, nil, "Intento de login con usuario desconocido: "+login, "warning", ip)
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if !e.Passwords.Verify(p.PasswordHash, password) {
			e.logSecurity(ctx, conn, &p.ID, "Contraseña incorrecta para "+p.Username, "danger", ip)
			return ErrInvalidCredentials
		}

		if err := e.Repo.TouchLastLogin(ctx, conn, p.ID, e.now()); err != nil {
			return err
		}
		e.logSecurity(ctx, conn, &p.ID, "Inicio de sesión de "+p.Username, "success", ip)

		token, err := e.Issuer.Issue(identity.TokenInput{
			UserID:     p.ID,
			TenantID:   p.TenantID,
			Role:       p.RolNombre,
			GerenciaID: p.GerenciaID,
		})
		if err != nil {
			return err
		}
		result = LoginResult{Token: token, Profile: p}
		return nil
	})
	return result, err
}

// Me returns the authenticated caller's profile.
func (e *Engine) Me(ctx context.Context) (domain.Profile, error) {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return domain.Profile{}, ErrInvalidCredentials
	}
	var profile domain.Profile
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		var err error
		profile, err = e.Repo.GetProfile(ctx, conn, userID)
		return err
	})
	return profile, err
}

// SwitchOrganization re-issues the caller's token scoped to another
// organization they are a member of.
func (e *Engine) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (LoginResult, error) {
	userID, ok := reqctx.UserID(ctx)
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}
	var result LoginResult
	err := e.run(ctx, func(ctx context.Context, conn pool.Conn) error {
		role, err := e.Repo.MembershipRole(ctx, conn, userID, orgID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoMembership
		}
		if err != nil {
			return err
		}
		p, err := e.Repo.GetProfile(ctx, conn, userID)
		if err != nil {
			return err
		}
		token, err := e.Issuer.Issue(identity.TokenInput{
			UserID:     userID,
			TenantID:   &orgID,
			Role:       role,
			GerenciaID: p.GerenciaID,
		})
		if err != nil {
			return err
		}
		p.TenantID = &orgID
		result = LoginResult{Token: token, Profile: p}
		return nil
	})
	return result, err
}

// logSecurity records a security event, tolerating failures: an
// unwritable audit row must not block the login path.
func (e *Engine) logSecurity(ctx context.Context, conn pool.Conn, userID *uuid.UUID, evento, nivel, ip string) {
	if err := e.Repo.InsertSecurityLog(ctx, conn, userID, evento, nivel, ip); err != nil {
		e.Log.Warn("security log write failed", append(reqctx.LogFields(ctx), zap.Error(err))...)
	}
}
