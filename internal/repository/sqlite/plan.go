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

var (
	_ repository.PlanRepository         = (*PlanStore)(nil)
	_ repository.AppPlanRepository      = (*AppPlanStore)(nil)
	_ repository.DatabasePlanRepository = (*DatabasePlanStore)(nil)
)

// PlanStore persists model.Plan rows. Money columns go in and out through
// model.Money's Value and Scan, so prices never pass through float64.
type PlanStore struct {
	conn *sql.DB
}

const planColumns = `id, plan_type, storage, bandwidth, memory, cpu, monthly_cost, price_per_hour, created_at, updated_at`

func scanPlan(scan func(dest ...any) error, p *model.Plan) error {
	return scan(
		&p.ID, &p.PlanType, &p.Storage, &p.Bandwidth, &p.Memory, &p.CPU,
		&p.MonthlyCost, &p.PricePerHour, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (s *PlanStore) Create(ctx context.Context, p *model.Plan) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO plans (plan_type, storage, bandwidth, memory, cpu, monthly_cost, price_per_hour, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PlanType, p.Storage, p.Bandwidth, p.Memory, p.CPU,
		p.MonthlyCost, p.PricePerHour, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating plan: %w", err)
	}
	if p.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading plan id: %w", err)
	}
	return nil
}

func (s *PlanStore) GetByID(ctx context.Context, id int64) (*model.Plan, error) {
	var p model.Plan
	row := s.conn.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	if err := scanPlan(row.Scan, &p); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("plan", id)
		}
		return nil, fmt.Errorf("sqlite: getting plan %d: %w", id, err)
	}
	return &p, nil
}

func (s *PlanStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Plan, error) {
	limit, offset := limitArg(opts.Limit, opts.Offset)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plans: %w", err)
	}
	defer rows.Close()

	plans := []model.Plan{}
	for rows.Next() {
		var p model.Plan
		if err := scanPlan(rows.Scan, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning plan row: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating plans: %w", err)
	}
	return plans, nil
}

func (s *PlanStore) Update(ctx context.Context, p *model.Plan) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE plans
		 SET plan_type = ?, storage = ?, bandwidth = ?, memory = ?, cpu = ?,
		     monthly_cost = ?, price_per_hour = ?, updated_at = ?
		 WHERE id = ?`,
		p.PlanType, p.Storage, p.Bandwidth, p.Memory, p.CPU,
		p.MonthlyCost, p.PricePerHour, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating plan %d: %w", p.ID, err)
	}
	return checkAffected(result, apperror.NotFound("plan", p.ID))
}

func (s *PlanStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting plan %d: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("plan", id))
}

// AppPlanStore persists model.AppPlan assignments.
type AppPlanStore struct {
	conn *sql.DB
}

const appPlanColumns = `id, app_id, plan_id, created_at, updated_at`

func (s *AppPlanStore) Create(ctx context.Context, ap *model.AppPlan) error {
	now := time.Now().UTC()
	ap.CreatedAt = now
	ap.UpdatedAt = now

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO app_plans (app_id, plan_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		ap.App, ap.Plan, ap.CreatedAt, ap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating app plan: %w", err)
	}
	if ap.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading app plan id: %w", err)
	}
	return nil
}

func (s *AppPlanStore) GetByID(ctx context.Context, id int64) (*model.AppPlan, error) {
	var ap model.AppPlan
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+appPlanColumns+` FROM app_plans WHERE id = ?`, id,
	).Scan(&ap.ID, &ap.App, &ap.Plan, &ap.CreatedAt, &ap.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("app-plan", id)
		}
		return nil, fmt.Errorf("sqlite: getting app plan %d: %w", id, err)
	}
	return &ap, nil
}

func (s *AppPlanStore) List(ctx context.Context, opts repository.ListOptions) ([]model.AppPlan, error) {
	limit, offset := limitArg(opts.Limit, opts.Offset)
	return s.query(ctx, "listing app plans",
		`SELECT `+appPlanColumns+` FROM app_plans ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListByApp returns every assignment of the app, duplicates included.
func (s *AppPlanStore) ListByApp(ctx context.Context, appID int64) ([]model.AppPlan, error) {
	return s.query(ctx, "listing app plans by app",
		`SELECT `+appPlanColumns+` FROM app_plans WHERE app_id = ? ORDER BY id`,
		appID,
	)
}

func (s *AppPlanStore) query(ctx context.Context, action, query string, args ...any) ([]model.AppPlan, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", action, err)
	}
	defer rows.Close()

	plans := []model.AppPlan{}
	for rows.Next() {
		var ap model.AppPlan
		if err := rows.Scan(&ap.ID, &ap.App, &ap.Plan, &ap.CreatedAt, &ap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning app plan row: %w", err)
		}
		plans = append(plans, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", action, err)
	}
	return plans, nil
}

func (s *AppPlanStore) Update(ctx context.Context, ap *model.AppPlan) error {
	ap.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE app_plans SET app_id = ?, plan_id = ?, updated_at = ? WHERE id = ?`,
		ap.App, ap.Plan, ap.UpdatedAt, ap.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating app plan %d: %w", ap.ID, err)
	}
	return checkAffected(result, apperror.NotFound("app-plan", ap.ID))
}

func (s *AppPlanStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM app_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting app plan %d: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("app-plan", id))
}

// DatabasePlanStore persists model.DatabasePlan rows. Nothing above the
// storage layer writes them yet; they are created by operators.
type DatabasePlanStore struct {
	conn *sql.DB
}

func (s *DatabasePlanStore) Create(ctx context.Context, p *model.DatabasePlan) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO database_plans (owner, database_type, plan_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Owner, p.DatabaseType, p.Plan, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating database plan: %w", err)
	}
	if p.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading database plan id: %w", err)
	}
	return nil
}

func (s *DatabasePlanStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.DatabasePlan, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, owner, database_type, plan_id, created_at, updated_at
		 FROM database_plans WHERE owner = ? ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing database plans for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	plans := []model.DatabasePlan{}
	for rows.Next() {
		var p model.DatabasePlan
		if err := rows.Scan(&p.ID, &p.Owner, &p.DatabaseType, &p.Plan, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning database plan row: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating database plans: %w", err)
	}
	return plans, nil
}
