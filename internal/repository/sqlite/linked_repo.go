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

var _ repository.LinkedRepositoryRepository = (*LinkedRepoStore)(nil)

// LinkedRepoStore persists model.LinkedRepository rows.
type LinkedRepoStore struct {
	conn *sql.DB
}

const linkedRepoColumns = `id, organizer, repository, branches, created_at, updated_at`

func (s *LinkedRepoStore) Create(ctx context.Context, r *model.LinkedRepository) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO linked_repositories (organizer, repository, branches, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Organizer, r.Repository, r.Branches, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating linked repository: %w", err)
	}
	if r.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading linked repository id: %w", err)
	}
	return nil
}

func (s *LinkedRepoStore) GetByID(ctx context.Context, id int64) (*model.LinkedRepository, error) {
	var r model.LinkedRepository
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+linkedRepoColumns+` FROM linked_repositories WHERE id = ?`, id,
	).Scan(&r.ID, &r.Organizer, &r.Repository, &r.Branches, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("organizer-repo", id)
		}
		return nil, fmt.Errorf("sqlite: getting linked repository %d: %w", id, err)
	}
	return &r, nil
}

func (s *LinkedRepoStore) List(ctx context.Context, opts repository.ListOptions) ([]model.LinkedRepository, error) {
	limit, offset := limitArg(opts.Limit, opts.Offset)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+linkedRepoColumns+` FROM linked_repositories ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing linked repositories: %w", err)
	}
	defer rows.Close()

	repos := []model.LinkedRepository{}
	for rows.Next() {
		var r model.LinkedRepository
		if err := rows.Scan(&r.ID, &r.Organizer, &r.Repository, &r.Branches, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning linked repository row: %w", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating linked repositories: %w", err)
	}
	return repos, nil
}

func (s *LinkedRepoStore) Update(ctx context.Context, r *model.LinkedRepository) error {
	r.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE linked_repositories SET organizer = ?, repository = ?, branches = ?, updated_at = ?
		 WHERE id = ?`,
		r.Organizer, r.Repository, r.Branches, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating linked repository %d: %w", r.ID, err)
	}
	return checkAffected(result, apperror.NotFound("organizer-repo", r.ID))
}

func (s *LinkedRepoStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM linked_repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting linked repository %d: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("organizer-repo", id))
}
