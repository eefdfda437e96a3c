package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
	"github.com/sakif/deployhub/internal/validate"
)

// ===== LINKED REPOSITORIES =====

type LinkedRepoInput struct {
	Organizer  *int64  `json:"organizer"`
	Repository *string `json:"repository" validate:"omitempty,max=255"`
	Branches   *string `json:"branches" validate:"omitempty,max=255"`
}

func (in LinkedRepoInput) clean() LinkedRepoInput { return in }

func (in LinkedRepoInput) withDefaults(r *model.LinkedRepository) LinkedRepoInput {
	in.Organizer = orDefault(in.Organizer, r.Organizer)
	in.Repository = orDefault(in.Repository, r.Repository)
	in.Branches = orDefault(in.Branches, r.Branches)
	return in
}

func (in LinkedRepoInput) apply(r *model.LinkedRepository) {
	set(&r.Organizer, in.Organizer)
	set(&r.Repository, in.Repository)
	set(&r.Branches, in.Branches)
}

type LinkedRepoService = Resource[model.LinkedRepository, LinkedRepoInput]

func NewLinkedRepoService(store repository.LinkedRepositoryRepository, users repository.UserRepository, logger *slog.Logger) *LinkedRepoService {
	refs := func(ctx context.Context, in LinkedRepoInput) error {
		return refExists(ctx, "organizer", in.Organizer, func(ctx context.Context, id int64) error {
			_, err := users.GetUserByID(ctx, id)
			return err
		})
	}
	return newResource[model.LinkedRepository, LinkedRepoInput]("organizer-repo", store, refs, logger)
}

// ===== APPS =====

type AppInput struct {
	Organizer *int64  `json:"organizer"`
	Region    *string `json:"region" validate:"omitempty,max=255"`
	Framework *string `json:"framework" validate:"omitempty,oneof=vuejs react expressjs rubyonrails"`
}

// clean treats an empty framework as "not chosen".
func (in AppInput) clean() AppInput {
	if in.Framework != nil && *in.Framework == "" {
		in.Framework = nil
	}
	return in
}

func (in AppInput) withDefaults(a *model.AppDetail) AppInput {
	in.Organizer = orDefault(in.Organizer, a.Organizer)
	in.Region = orDefault(in.Region, a.Region)
	if in.Framework == nil && a.Framework != nil {
		fw := string(*a.Framework)
		in.Framework = &fw
	}
	return in
}

func (in AppInput) apply(a *model.AppDetail) {
	set(&a.Organizer, in.Organizer)
	set(&a.Region, in.Region)
	if in.Framework != nil {
		fw := model.Framework(*in.Framework)
		a.Framework = &fw
	}
}

type AppService = Resource[model.AppDetail, AppInput]

func NewAppService(store repository.AppRepository, repos repository.LinkedRepositoryRepository, logger *slog.Logger) *AppService {
	refs := func(ctx context.Context, in AppInput) error {
		return refExists(ctx, "organizer", in.Organizer, func(ctx context.Context, id int64) error {
			_, err := repos.GetByID(ctx, id)
			return err
		})
	}
	return newResource[model.AppDetail, AppInput]("app", store, refs, logger)
}

// ===== PLANS =====

// PlanInput is a plan request body. Prices default to 0.00 when omitted
// on create.
type PlanInput struct {
	PlanType     *string      `json:"plan_type" validate:"required,oneof=starter pro enterprise"`
	Storage      *int         `json:"storage" validate:"required"`
	Bandwidth    *int         `json:"bandwidth" validate:"required"`
	Memory       *int         `json:"memory" validate:"required"`
	CPU          *int         `json:"cpu" validate:"required"`
	MonthlyCost  *model.Money `json:"monthly_cost" validate:"omitempty,maxdigits=10,maxplaces=2"`
	PricePerHour *model.Money `json:"price_per_hour" validate:"omitempty,maxdigits=10,maxplaces=2"`
}

func (in PlanInput) clean() PlanInput { return in }

func (in PlanInput) withDefaults(p *model.Plan) PlanInput {
	if in.PlanType == nil {
		pt := string(p.PlanType)
		in.PlanType = &pt
	}
	in.Storage = orDefault(in.Storage, &p.Storage)
	in.Bandwidth = orDefault(in.Bandwidth, &p.Bandwidth)
	in.Memory = orDefault(in.Memory, &p.Memory)
	in.CPU = orDefault(in.CPU, &p.CPU)
	in.MonthlyCost = orDefault(in.MonthlyCost, &p.MonthlyCost)
	in.PricePerHour = orDefault(in.PricePerHour, &p.PricePerHour)
	return in
}

func (in PlanInput) apply(p *model.Plan) {
	if in.PlanType != nil {
		p.PlanType = model.PlanType(*in.PlanType)
	}
	setValue(&p.Storage, in.Storage)
	setValue(&p.Bandwidth, in.Bandwidth)
	setValue(&p.Memory, in.Memory)
	setValue(&p.CPU, in.CPU)
	// Stored with exactly two places; validation already rejected more.
	if in.MonthlyCost != nil {
		p.MonthlyCost = model.Money{Decimal: in.MonthlyCost.Round(model.MoneyPlaces)}
	}
	if in.PricePerHour != nil {
		p.PricePerHour = model.Money{Decimal: in.PricePerHour.Round(model.MoneyPlaces)}
	}
}

type PlanService = Resource[model.Plan, PlanInput]

func NewPlanService(store repository.PlanRepository, logger *slog.Logger) *PlanService {
	return newResource[model.Plan, PlanInput]("plan", store, nil, logger)
}

// ===== APP PLANS =====

type AppPlanInput struct {
	App  *int64 `json:"app" validate:"required"`
	Plan *int64 `json:"plan" validate:"required"`
}

func (in AppPlanInput) clean() AppPlanInput { return in }

func (in AppPlanInput) withDefaults(ap *model.AppPlan) AppPlanInput {
	in.App = orDefault(in.App, &ap.App)
	in.Plan = orDefault(in.Plan, &ap.Plan)
	return in
}

func (in AppPlanInput) apply(ap *model.AppPlan) {
	setValue(&ap.App, in.App)
	setValue(&ap.Plan, in.Plan)
}

// ErrPlanNotFound is returned by AssignPlan when plan_id is missing or
// names no plan.
var ErrPlanNotFound = errors.New("Plan not found")

// AppPlanService is the app-plans collection plus plan assignment.
type AppPlanService struct {
	*Resource[model.AppPlan, AppPlanInput]
	assignments repository.AppPlanRepository
	apps        repository.AppRepository
	plans       repository.PlanRepository
	logger      *slog.Logger
}

func NewAppPlanService(store repository.AppPlanRepository, apps repository.AppRepository, plans repository.PlanRepository, logger *slog.Logger) *AppPlanService {
	refs := func(ctx context.Context, in AppPlanInput) error {
		appErr := refExists(ctx, "app", in.App, func(ctx context.Context, id int64) error {
			_, err := apps.GetByID(ctx, id)
			return err
		})
		planErr := refExists(ctx, "plan", in.Plan, func(ctx context.Context, id int64) error {
			_, err := plans.GetByID(ctx, id)
			return err
		})
		return validate.Merge(appErr, planErr)
	}
	return &AppPlanService{
		Resource:    newResource[model.AppPlan, AppPlanInput]("app-plan", store, refs, logger),
		assignments: store,
		apps:        apps,
		plans:       plans,
		logger:      logger,
	}
}

// AssignPlan attaches plan planID to app appID.
//
// The app must exist (apperror.ErrNotFound otherwise). A nil planID or an
// unknown plan returns ErrPlanNotFound and writes nothing. Assigning the
// same plan again adds another row.
func (s *AppPlanService) AssignPlan(ctx context.Context, appID int64, planID *int64) (*model.AppPlan, error) {
	if _, err := s.apps.GetByID(ctx, appID); err != nil {
		return nil, wrapLookup("app", appID, err)
	}
	if planID == nil {
		return nil, ErrPlanNotFound
	}
	if _, err := s.plans.GetByID(ctx, *planID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("service/app-plan: looking up plan %d: %w", *planID, err)
	}

	ap := &model.AppPlan{App: appID, Plan: *planID}
	if err := s.assignments.Create(ctx, ap); err != nil {
		return nil, fmt.Errorf("service/app-plan: assigning plan %d to app %d: %w", *planID, appID, err)
	}

	s.logger.Info("plan assigned",
		slog.Int64("app_id", appID),
		slog.Int64("plan_id", *planID),
		slog.Int64("assignment_id", ap.ID),
	)
	return ap, nil
}

// ListForApp returns every plan assignment of an app.
func (s *AppPlanService) ListForApp(ctx context.Context, appID int64) ([]model.AppPlan, error) {
	if _, err := s.apps.GetByID(ctx, appID); err != nil {
		return nil, wrapLookup("app", appID, err)
	}
	items, err := s.assignments.ListByApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("service/app-plan: listing for app %d: %w", appID, err)
	}
	return items, nil
}

// ===== HELPERS =====

func orDefault[V any](v, fallback *V) *V {
	if v != nil {
		return v
	}
	return fallback
}

// set overwrites a nullable field when the input carries a value.
func set[V any](dst **V, v *V) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

// setValue overwrites a non-nullable field when the input carries a value.
func setValue[V any](dst *V, v *V) {
	if v != nil {
		*dst = *v
	}
}
