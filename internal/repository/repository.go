// Package repository declares the storage contracts the services depend on.
// The sqlite subpackage is the only implementation.
package repository

import (
	"context"

	"github.com/sakif/deployhub/internal/model"
)

// ListOptions bounds a List call. A Limit of zero or less returns every row.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store is the CRUD contract shared by every catalog entity.
//
// Create and Update fill in generated fields (ID, timestamps) on the value
// passed in. GetByID, Update and Delete return an apperror.ErrNotFound
// error when no row has the id.
type Store[T any] interface {
	Create(ctx context.Context, v *T) error
	GetByID(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, opts ListOptions) ([]T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id int64) error
}

type UserRepository interface {
	// UpsertIdentity inserts the user or, when (ExternalID, Provider)
	// already exists, refreshes its access token and last login. The
	// stored row is written back into u.
	UpsertIdentity(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

type LinkedRepositoryRepository = Store[model.LinkedRepository]

type AppRepository = Store[model.AppDetail]

type PlanRepository = Store[model.Plan]

type AppPlanRepository interface {
	Store[model.AppPlan]
	ListByApp(ctx context.Context, appID int64) ([]model.AppPlan, error)
}

type DatabasePlanRepository interface {
	Create(ctx context.Context, p *model.DatabasePlan) error
	ListByOwner(ctx context.Context, ownerID int64) ([]model.DatabasePlan, error)
}
