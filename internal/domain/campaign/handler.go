package campaign

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/domain/wallet"
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

type createRequest struct {
	Kind            string `json:"kind" validate:"required,target_kind"`
	Title           string `json:"title" validate:"required,min=3,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	Budget          int64  `json:"budget" validate:"gte=0"`
	MaxParticipants int    `json:"max_participants" validate:"required,gte=1"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	c, err := h.svc.Create(r.Context(), userID, CreateInput{
		Kind:            Kind(req.Kind),
		Title:           req.Title,
		Description:     req.Description,
		Budget:          req.Budget,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			response.BadRequest(w, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid campaign id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "campaign not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var ownerID *uuid.UUID
	if mine := r.URL.Query().Get("mine"); mine == "true" {
		userID := middleware.GetUserID(r.Context())
		if userID == uuid.Nil {
			response.Unauthorized(w, "unauthorized")
			return
		}
		ownerID = &userID
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	campaigns, total, err := h.svc.List(r.Context(), ownerID, page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, campaigns, response.Meta{
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
	r.With(middleware.RequireMember()).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}
