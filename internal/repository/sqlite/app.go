package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
)

var _ repository.AppRepository = (*AppStore)(nil)

// AppStore persists model.AppDetail rows.
type AppStore struct {
	conn *sql.DB
}

const appColumns = `id, organizer, region, framework, created_at, updated_at`

func (s *AppStore) Create(ctx context.Context, a *model.AppDetail) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO apps (organizer, region, framework, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.Organizer, a.Region, a.Framework, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating app: %w", err)
	}
	if a.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading app id: %w", err)
	}
	return nil
}

func (s *AppStore) GetByID(ctx context.Context, id int64) (*model.AppDetail, error) {
	var a model.AppDetail
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM apps WHERE id = ?`, id,
	).Scan(&a.ID, &a.Organizer, &a.Region, &a.Framework, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("app", id)
		}
		return nil, fmt.Errorf("sqlite: getting app %d: %w", id, err)
	}
	return &a, nil
}

func (s *AppStore) List(ctx context.Context, opts repository.ListOptions) ([]model.AppDetail, error) {
	limit, offset := limitArg(opts.Limit, opts.Offset)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+appColumns+` FROM apps ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing apps: %w", err)
	}
	defer rows.Close()

	apps := []model.AppDetail{}
	for rows.Next() {
		var a model.AppDetail
		if err := rows.Scan(&a.ID, &a.Organizer, &a.Region, &a.Framework, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning app row: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating apps: %w", err)
	}
	return apps, nil
}

func (s *AppStore) Update(ctx context.Context, a *model.AppDetail) error {
	a.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE apps SET organizer = ?, region = ?, framework = ?, updated_at = ? WHERE id = ?`,
		a.Organizer, a.Region, a.Framework, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating app %d: %w", a.ID, err)
	}
	return checkAffected(result, apperror.NotFound("app", a.ID))
}

func (s *AppStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting app %d: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("app", id))
}
