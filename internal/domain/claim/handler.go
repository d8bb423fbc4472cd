package claim

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/domain/campaign"
	"github.com/taskhive/taskhive-api/internal/middleware"
	"github.com/taskhive/taskhive-api/internal/pkg/response"
	"github.com/taskhive/taskhive-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type submitRequest struct {
	CampaignID uuid.UUID `json:"campaign_id" validate:"required"`
	Proof      string    `json:"proof" validate:"required,min=1,max=2000"`
}

type reviewRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req submitRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	c, err := h.svc.Submit(r.Context(), userID, req.CampaignID, req.Proof)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrDuplicateClaim):
			response.Conflict(w, err.Error())
		case errors.Is(err, campaign.ErrNotFound):
			response.NotFound(w, "campaign not found")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, c)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID, notes string) (*Settlement, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid claim id")
		return
	}

	var req reviewRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	settlement, err := fn(r.Context(), id, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "claim not found")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, settlement)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	h.list(w, r, func(page, limit int) ([]Claim, int, error) {
		return h.svc.ListByUser(r.Context(), userID, page, limit)
	})
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(page, limit int) ([]Claim, int, error) {
		return h.svc.ListPending(r.Context(), page, limit)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fn func(page, limit int) ([]Claim, int, error)) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	claims, total, err := fn(page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, claims, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(middleware.RequireMember()).Post("/", h.Submit)
	r.Get("/", h.ListMine)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/pending", h.ListPending)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
	return r
}
