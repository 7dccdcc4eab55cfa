package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1037989/stripepayment/internal/charge"
	"github.com/s1037989/stripepayment/internal/service"
	"github.com/s1037989/stripepayment/pkg/httputil"
	"github.com/s1037989/stripepayment/pkg/validator"
)

// IdempotencyKeyHeader names the header that makes a checkout replay-safe.
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// CheckoutRequest is the JSON request body for a checkout.
type CheckoutRequest struct {
	Amount              int64             `json:"amount" validate:"required,gt=0"`
	Currency            string            `json:"currency" validate:"omitempty,len=3"`
	Source              string            `json:"source" validate:"required"`
	Customer            string            `json:"customer"`
	Description         string            `json:"description" validate:"max=1000"`
	ReceiptEmail        string            `json:"receipt_email" validate:"omitempty,email"`
	StatementDescriptor string            `json:"statement_descriptor" validate:"max=22"`
	Metadata            map[string]string `json:"metadata"`
}

// Args converts the request into charge arguments. Capture is always
// deferred so the flow can record the charge before capturing it.
func (req CheckoutRequest) Args() charge.Args {
	args := charge.Args{
		"amount":  req.Amount,
		"source":  req.Source,
		"capture": false,
	}
	optional := map[string]string{
		"currency":             req.Currency,
		"customer":             req.Customer,
		"description":          req.Description,
		"receipt_email":        req.ReceiptEmail,
		"statement_descriptor": req.StatementDescriptor,
	}
	for k, v := range optional {
		if v != "" {
			args[k] = v
		}
	}
	if len(req.Metadata) > 0 {
		args["metadata"] = req.Metadata
	}
	return args
}

// Checkout handles POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Checkout(r.Context(), service.CheckoutInput{
		Args:           req.Args(),
		Defaults:       charge.NoDefaults,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// GetRecord handles GET /api/v1/checkout/{chargeID}
func (h *CheckoutHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "chargeID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}
