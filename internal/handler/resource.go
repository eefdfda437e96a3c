package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
	"github.com/sakif/deployhub/internal/service"
)

// CRUDService is the shape of every service.Resource.
type CRUDService[T, In any] interface {
	List(ctx context.Context, opts repository.ListOptions) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, in In, partial bool) (*T, error)
	Delete(ctx context.Context, id int64) error
}

var _ CRUDService[model.AppDetail, service.AppInput] = (*service.AppService)(nil)

// ResourceHandler serves one REST collection:
//
//	GET    /           → list (?limit=&offset=)
//	POST   /           → create, 201
//	GET    /{id}       → retrieve
//	PUT    /{id}       → full update
//	PATCH  /{id}       → partial update
//	DELETE /{id}       → delete, 204
type ResourceHandler[T, In any] struct {
	name   string
	svc    CRUDService[T, In]
	logger *slog.Logger
}

func NewResourceHandler[T, In any](name string, svc CRUDService[T, In], logger *slog.Logger) *ResourceHandler[T, In] {
	return &ResourceHandler[T, In]{name: name, svc: svc, logger: logger}
}

// Routes mounts the collection on r.
func (h *ResourceHandler[T, In]) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Patch("/{id}", h.HandlePartialUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

func (h *ResourceHandler[T, In]) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := repository.ListOptions{}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "limit", "A valid integer is required.")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "offset", "A valid integer is required.")
			return
		}
		opts.Offset = n
	}

	items, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("list failed", slog.String("resource", h.name), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ResourceHandler[T, In]) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ResourceHandler[T, In]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bind(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *ResourceHandler[T, In]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *ResourceHandler[T, In]) HandlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *ResourceHandler[T, In]) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	in, ok := h.bind(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Update(r.Context(), id, in, partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ResourceHandler[T, In]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// id reads {id}; anything but a positive integer cannot name a row.
func (h *ResourceHandler[T, In]) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: h.name + " not found"})
	}
	return id, ok
}

func (h *ResourceHandler[T, In]) bind(w http.ResponseWriter, r *http.Request) (In, bool) {
	var in In
	fields, err := bodyFields(w, r)
	if err == nil {
		err = bindInput(fields, &in)
	}
	if err != nil {
		writeError(w, err)
		return in, false
	}
	return in, true
}
