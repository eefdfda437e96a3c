// Package service contains the business rules between the HTTP handlers
// and the repositories.
//
//	Handler (HTTP)  → Service (validation, references, orchestration)
//	                → Repository (SQL)
//
// Services take and return domain types and apperror values only. Nothing
// here knows about status codes or requests, so every rule can be tested
// with plain function calls and in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/repository"
	"github.com/sakif/deployhub/internal/validate"
)

// input is a request body for entity T.
//
// Fields are pointers: nil means the member was absent (or null) and the
// stored value is kept. Methods have value receivers and return copies.
type input[T, Self any] interface {
	// clean normalizes values before validation (e.g. "" choice → nil).
	clean() Self
	// withDefaults fills absent fields from an existing record, so a
	// partial update validates against the record's current state.
	withDefaults(existing *T) Self
	// apply writes every present field onto v.
	apply(v *T)
}

// RefChecker validates the foreign keys of an input. It returns a
// validation error for ids that do not exist.
type RefChecker[In any] func(ctx context.Context, in In) error

// Resource is the CRUD service behind one REST collection.
type Resource[T any, In input[T, In]] struct {
	name   string
	store  repository.Store[T]
	refs   RefChecker[In]
	logger *slog.Logger
}

func newResource[T any, In input[T, In]](name string, store repository.Store[T], refs RefChecker[In], logger *slog.Logger) *Resource[T, In] {
	return &Resource[T, In]{name: name, store: store, refs: refs, logger: logger}
}

// List returns the page described by opts, ordered by id. A zero Limit
// returns every row.
func (s *Resource[T, In]) List(ctx context.Context, opts repository.ListOptions) ([]T, error) {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	items, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/%s: listing: %w", s.name, err)
	}
	return items, nil
}

// Get returns one record or an apperror.ErrNotFound error.
func (s *Resource[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(s.name, id, err)
	}
	return v, nil
}

// Create validates in and stores a new record built from it.
func (s *Resource[T, In]) Create(ctx context.Context, in In) (*T, error) {
	in = in.clean()
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}

	var v T
	in.apply(&v)
	if err := s.store.Create(ctx, &v); err != nil {
		s.logger.Error("create failed",
			slog.String("resource", s.name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/%s: creating: %w", s.name, err)
	}

	s.logger.Info("resource created", slog.String("resource", s.name))
	return &v, nil
}

// Update changes record id.
//
// A full update (partial=false) requires every required field in in. A
// partial update validates in merged over the stored record. Either way,
// absent optional fields keep their stored value.
func (s *Resource[T, In]) Update(ctx context.Context, id int64, in In, partial bool) (*T, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(s.name, id, err)
	}

	in = in.clean()
	if partial {
		in = in.withDefaults(existing)
	}
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}

	in.apply(existing)
	if err := s.store.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("service/%s: updating %d: %w", s.name, id, err)
	}

	s.logger.Info("resource updated",
		slog.String("resource", s.name),
		slog.Int64("id", id),
		slog.Bool("partial", partial),
	)
	return existing, nil
}

// Delete removes record id. Owned rows go with it (ON DELETE CASCADE).
func (s *Resource[T, In]) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapLookup(s.name, id, err)
	}
	s.logger.Info("resource deleted", slog.String("resource", s.name), slog.Int64("id", id))
	return nil
}

// check runs field validation and reference checks and reports all of
// their failures together.
func (s *Resource[T, In]) check(ctx context.Context, in In) error {
	fieldErr := validate.Struct(in)
	var refErr error
	if s.refs != nil {
		refErr = s.refs(ctx, in)
	}
	return validate.Merge(fieldErr, refErr)
}

// wrapLookup passes not found errors through untouched so handlers can
// render their message, and wraps everything else.
func wrapLookup(resource string, id int64, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return fmt.Errorf("service/%s: looking up %d: %w", resource, id, err)
}

// refExists checks one optional foreign key. lookup must return an
// apperror.ErrNotFound error when the row is missing.
func refExists(ctx context.Context, field string, id *int64, lookup func(context.Context, int64) error) error {
	if id == nil {
		return nil
	}
	err := lookup(ctx, *id)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ValidationFailed(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *id))
	}
	return err
}
