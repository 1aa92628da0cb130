package orders

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
	"github.com/forgeline-mes/forgeline-mes/internal/rbac"
)

// Handler wires HTTP endpoints for the orders module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("orders", "read"))
		r.Get("/", h.list)
		r.Get("/with-lines", h.listHistory)
		r.Get("/{id}", h.get)
		r.Get("/{id}/dispatch-logs", h.listDispatchLogs)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("purchase_order_generator", "write"))
		r.Post("/with-lines", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("orders", "write"))
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/approve-dispatch", h.approveDispatch)
	})
}

type createOrderRequest struct {
	CustomerName   string             `json:"customer_name" validate:"required,max=200"`
	SalesPerson    string             `json:"sales_person" validate:"max=200"`
	OrderTimestamp time.Time          `json:"order_timestamp"`
	Lines          []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type orderLineRequest struct {
	SKU      string          `json:"sku" validate:"required"`
	Quantity int64           `json:"quantity" validate:"required,gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type updateOrderRequest struct {
	Status         Status          `json:"status" validate:"required"`
	CustomerName   string          `json:"customer_name"`
	SalesPerson    string          `json:"sales_person"`
	OrderTimestamp time.Time       `json:"order_timestamp"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

type qcSubmissionRequest struct {
	QCName        string          `json:"qc_name" validate:"required,max=200"`
	QCDate        string          `json:"qc_date" validate:"required,max=40"`
	ProofPublicID string          `json:"proof_public_id"`
	ProofVersion  string          `json:"proof_version"`
	ProofFormat   string          `json:"proof_format"`
	Lines         []qcLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type qcLineRequest struct {
	SKU            string `json:"sku" validate:"required"`
	DispatchQty    int64  `json:"dispatch_qty" validate:"required,gt=0"`
	Passed         int64  `json:"passed" validate:"gte=0"`
	Rejected       int64  `json:"rejected" validate:"gte=0"`
	Replaced       bool   `json:"replaced"`
	ReplacementQty int64  `json:"replacement_qty" validate:"gte=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListHistory(r.Context())
	if err != nil {
		h.logger.Error("list order history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []OrderHistory{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	out, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateOrderInput{
		CustomerName:   req.CustomerName,
		SalesPerson:    req.SalesPerson,
		OrderTimestamp: req.OrderTimestamp,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, CreateOrderLine{SKU: line.SKU, Quantity: line.Quantity, UnitCost: line.UnitCost})
	}
	out, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	out, err := h.service.Update(r.Context(), PurchaseOrder{
		ID:             id,
		Status:         req.Status,
		CustomerName:   req.CustomerName,
		SalesPerson:    req.SalesPerson,
		OrderTimestamp: req.OrderTimestamp,
		TotalAmount:    req.TotalAmount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) approveDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var req qcSubmissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sub := QCSubmission{
		QCName:        req.QCName,
		QCDate:        req.QCDate,
		ProofPublicID: req.ProofPublicID,
		ProofVersion:  req.ProofVersion,
		ProofFormat:   req.ProofFormat,
	}
	for _, line := range req.Lines {
		sub.Lines = append(sub.Lines, QCLine(line))
	}
	out, err := h.service.ApproveAndDispatch(r.Context(), id, sub)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listDispatchLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	logs, err := h.service.ListDispatchLogs(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if logs == nil {
		logs = []DispatchLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
