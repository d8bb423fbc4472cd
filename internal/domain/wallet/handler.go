package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type buyRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type convertRequest struct {
	Diamonds int64 `json:"diamonds" validate:"required,gt=0"`
}

type withdrawRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Destination string `json:"destination" validate:"required,min=1,max=256"`
}

type onchainConfirmRequest struct {
	TxHash     string `json:"tx_hash" validate:"required,min=1,max=128"`
	USDTAmount string `json:"usdt_amount"`
}

type adjustRequest struct {
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	DiamondsDelta int64     `json:"diamonds_delta"`
	USDTDelta     string    `json:"usdt_delta"`
	Reason        string    `json:"reason" validate:"required,min=1,max=512"`
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, balance)
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req buyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receipt, err := h.svc.BuyDiamonds(r.Context(), userID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, receipt)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req convertRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receipt, err := h.svc.ConvertToUSDT(r.Context(), userID, req.Diamonds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, receipt)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req withdrawRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receipt, err := h.svc.WithdrawUSDT(r.Context(), userID, req.Amount, req.Destination)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, receipt)
}

func (h *Handler) ConfirmOnchain(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req onchainConfirmRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receipt, err := h.svc.ConfirmOnchainPurchase(r.Context(), userID, req.TxHash, req.USDTAmount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, receipt)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	receipt, err := h.svc.AdminAdjust(r.Context(), req.UserID, req.DiamondsDelta, req.USDTDelta, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, receipt)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	typeFilter := r.URL.Query().Get("type")
	if err := validator.ValidateVar(typeFilter, "entry_type"); err != nil {
		response.BadRequest(w, "invalid transaction type filter")
		return
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.svc.ListTransactions(r.Context(), userID, page, limit, typeFilter)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, entries, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrInsufficientBalance):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrVerificationFailed):
		response.Error(w, http.StatusBadGateway, "VERIFICATION_FAILED", err.Error())
	case errors.Is(err, ErrNotConfigured):
		response.Error(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error())
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Post("/buy", h.Buy)
	r.Post("/convert", h.Convert)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/onchain/confirm", h.ConfirmOnchain)
	r.Get("/transactions", h.Transactions)
	r.With(middleware.RequireAdmin()).Post("/adjust", h.Adjust)
	return r
}
