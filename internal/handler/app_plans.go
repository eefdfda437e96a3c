package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/service"
)

// PlanAssigner is implemented by *service.AppPlanService.
type PlanAssigner interface {
	AssignPlan(ctx context.Context, appID int64, planID *int64) (*model.AppPlan, error)
	ListForApp(ctx context.Context, appID int64) ([]model.AppPlan, error)
}

var _ PlanAssigner = (*service.AppPlanService)(nil)

type AppPlanHandler struct {
	assigner PlanAssigner
	logger   *slog.Logger
}

func NewAppPlanHandler(assigner PlanAssigner, logger *slog.Logger) *AppPlanHandler {
	return &AppPlanHandler{assigner: assigner, logger: logger}
}

type assignInput struct {
	PlanID *int64 `json:"plan_id"`
}

// HandleAssignPlan attaches a plan to the app named in the path.
//
// HTTP: POST /api/app-plans/{id}/assign-plan/  body: plan_id
//
// 201 {"status": "Plan assigned successfully"}, or 404 {"error": "Plan not
// found"} when plan_id is missing, malformed or unknown.
func (h *AppPlanHandler) HandleAssignPlan(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "app not found"})
		return
	}

	fields, err := bodyFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in assignInput
	if err := bindInput(fields, &in); err != nil {
		// A plan_id that is not an integer cannot name a plan.
		in.PlanID = nil
	}

	_, err = h.assigner.AssignPlan(r.Context(), appID, in.PlanID)
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		writeMessage(w, http.StatusNotFound, "error", service.ErrPlanNotFound.Error())
	case err != nil:
		writeError(w, err)
	default:
		writeMessage(w, http.StatusCreated, "status", "Plan assigned successfully")
	}
}

// HandleListForApp returns the plan assignments of one app.
//
// HTTP: GET /api/apps/{id}/plans/
func (h *AppPlanHandler) HandleListForApp(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "app not found"})
		return
	}

	items, err := h.assigner.ListForApp(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
