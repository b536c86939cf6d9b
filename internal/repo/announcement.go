package repo

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"corpdesk/internal/domain"
	"corpdesk/internal/pool"
)

// The announcement banner lives as a JSON blob in the single-row
// sistema_config table.
const announcementKey = 1

func (r Repo) GetAnnouncement(ctx context.Context, conn pool.Conn) (domain.Announcement, error) {
	query, args, err := psql.Select("banner_alerta").
		From("sistema_config").
		Where(sq.Eq{"id": announcementKey}).
		ToSql()
	if err != nil {
		return domain.Announcement{}, err
	}
	var raw []byte
	if err := conn.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return domain.Announcement{}, notFoundIfNoRows(err)
	}
	var a domain.Announcement
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a); err != nil {
			return domain.Announcement{}, err
		}
	}
	return a, nil
}

func (r Repo) PutAnnouncement(ctx context.Context, conn pool.Conn, a domain.Announcement) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("sistema_config").
		Columns("id", "banner_alerta").
		Values(announcementKey, raw).
		Suffix("ON CONFLICT (id) DO UPDATE SET banner_alerta = EXCLUDED.banner_alerta").
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return err
}
