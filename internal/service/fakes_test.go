package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory repository.Store. id points at the ID field
// of a value so one fake serves every entity.
type fakeStore[T any] struct {
	mu     sync.Mutex
	name   string
	rows   map[int64]T
	nextID int64
	id     func(*T) *int64

	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeStore[T any](name string, id func(*T) *int64) *fakeStore[T] {
	return &fakeStore[T]{name: name, rows: map[int64]T{}, nextID: 1, id: id}
}

func (f *fakeStore[T]) Create(_ context.Context, v *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	*f.id(v) = f.nextID
	f.nextID++
	f.rows[*f.id(v)] = *v
	return nil
}

func (f *fakeStore[T]) GetByID(_ context.Context, id int64) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[id]
	if !ok {
		return nil, apperror.NotFound(f.name, id)
	}
	return &v, nil
}

func (f *fakeStore[T]) List(_ context.Context, opts repository.ListOptions) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []T{}
	for i, id := range ids {
		if i < opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
		out = append(out, f.rows[id])
	}
	return out, nil
}

func (f *fakeStore[T]) Update(_ context.Context, v *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := *f.id(v)
	if _, ok := f.rows[id]; !ok {
		return apperror.NotFound(f.name, id)
	}
	f.rows[id] = *v
	return nil
}

func (f *fakeStore[T]) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return apperror.NotFound(f.name, id)
	}
	delete(f.rows, id)
	return nil
}

type fakeAppPlanStore struct {
	*fakeStore[model.AppPlan]
}

func (f fakeAppPlanStore) ListByApp(ctx context.Context, appID int64) ([]model.AppPlan, error) {
	all, _ := f.List(ctx, repository.ListOptions{})
	out := []model.AppPlan{}
	for _, ap := range all {
		if ap.App == appID {
			out = append(out, ap)
		}
	}
	return out, nil
}

// fakeUserRepo keys users by (external id, provider) like the unique index.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	byExtern map[int64]*model.User
	nextID   int64

	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    map[int64]*model.User{},
		byExtern: map[int64]*model.User{},
		nextID:   1,
	}
}

func (f *fakeUserRepo) UpsertIdentity(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	now := time.Now().UTC()
	if existing, ok := f.byExtern[u.ExternalID]; ok {
		existing.AccessToken = u.AccessToken
		existing.LastLogin = &now
		*u = *existing
		return nil
	}
	u.ID = f.nextID
	f.nextID++
	u.LastLogin = &now
	u.CreatedAt, u.UpdatedAt = now, now
	stored := *u
	f.users[u.ID] = &stored
	f.byExtern[u.ExternalID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) add(externalID int64) int64 {
	u := &model.User{ExternalID: externalID, Provider: model.ProviderGitHub}
	if err := f.UpsertIdentity(context.Background(), u); err != nil {
		panic(err)
	}
	return u.ID
}

// catalogFixture wires every catalog service to fresh fakes.
type catalogFixture struct {
	users    *fakeUserRepo
	repos    *fakeStore[model.LinkedRepository]
	apps     *fakeStore[model.AppDetail]
	plans    *fakeStore[model.Plan]
	appPlans fakeAppPlanStore

	repoSvc    *LinkedRepoService
	appSvc     *AppService
	planSvc    *PlanService
	appPlanSvc *AppPlanService
}

func newCatalogFixture() *catalogFixture {
	log := discardLogger()
	f := &catalogFixture{
		users:    newFakeUserRepo(),
		repos:    newFakeStore("organizer-repo", func(v *model.LinkedRepository) *int64 { return &v.ID }),
		apps:     newFakeStore("app", func(v *model.AppDetail) *int64 { return &v.ID }),
		plans:    newFakeStore("plan", func(v *model.Plan) *int64 { return &v.ID }),
		appPlans: fakeAppPlanStore{newFakeStore("app-plan", func(v *model.AppPlan) *int64 { return &v.ID })},
	}
	f.repoSvc = NewLinkedRepoService(f.repos, f.users, log)
	f.appSvc = NewAppService(f.apps, f.repos, log)
	f.planSvc = NewPlanService(f.plans, log)
	f.appPlanSvc = NewAppPlanService(f.appPlans, f.apps, f.plans, log)
	return f
}

func ptr[V any](v V) *V { return &v }

func fieldMessages(err error) map[string][]string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	return appErr.Fields
}
