package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/catalog"
	"github.com/nikolayk812/storefront-cart/internal/checkout"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/pricing"
	"github.com/nikolayk812/storefront-cart/internal/receipt"
	"go.uber.org/zap"
)

var errUnknownVariant = errors.New("unknown variant")

type Handler struct {
	catalog   *catalog.Memory
	terminals *Terminals
	receipts  port.ReceiptRepository
	logger    *zap.Logger
}

func NewHandler(cat *catalog.Memory, terminals *Terminals, receipts port.ReceiptRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:   cat,
		terminals: terminals,
		receipts:  receipts,
		logger:    logger,
	}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List(r.URL.Query().Get("category"))

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}

	p, err := h.catalog.Resolve(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}
	h.writeCart(w, r, term, http.StatusOK)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := term.Store.AddItem(r.Context(), id, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, term, http.StatusOK)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := term.Store.SetQuantity(r.Context(), id, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, term, http.StatusOK)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}

	if err := term.Store.RemoveItem(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, term, http.StatusOK)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}

	if err := term.Store.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, term, http.StatusOK)
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}
	h.writeSession(w, term, http.StatusOK)
}

func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusCreated, func(r *http.Request, wf *checkout.Workflow) error {
		return wf.Begin(r.Context())
	})
}

func (h *Handler) Proceed(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(_ *http.Request, wf *checkout.Workflow) error {
		return wf.Proceed()
	})
}

func (h *Handler) SetAddress(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		var req AddressDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return badRequest{fmt.Errorf("decode address: %w", err)}
		}
		return wf.SetShippingAddress(domain.Address{
			Recipient: req.Recipient,
			Phone:     req.Phone,
			Street:    req.Street,
			City:      req.City,
			Postcode:  req.Postcode,
		})
	})
}

func (h *Handler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		var req PaymentMethodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return badRequest{fmt.Errorf("decode payment method: %w", err)}
		}
		m, ok := domain.ParsePaymentMethod(req.Method)
		if !ok {
			return fmt.Errorf("method %q: %w", req.Method, domain.ErrInvalidPaymentMethod)
		}
		return wf.SelectPaymentMethod(m)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusAccepted, func(r *http.Request, wf *checkout.Workflow) error {
		return wf.Submit(r.Context())
	})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		return wf.Confirm(r.Context())
	})
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		req := DenyRequest{Reason: "confirmation denied"}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return badRequest{fmt.Errorf("decode deny: %w", err)}
			}
		}
		return wf.Deny(r.Context(), req.Reason)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		return wf.Cancel(r.Context())
	})
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(r *http.Request, wf *checkout.Workflow) error {
		return wf.Retry(r.Context())
	})
}

func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, http.StatusOK, func(_ *http.Request, wf *checkout.Workflow) error {
		return wf.Close()
	})
}

// GetReceipt serves JSON, or the printed receipt with ?format=text.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseReceiptID(chi.URLParam(r, "receiptID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receipt id", err)
		return
	}
	if h.receipts == nil {
		writeError(w, http.StatusNotFound, "Receipt not found", nil)
		return
	}

	rec, err := h.receipts.GetReceipt(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "text" {
		writeJSON(w, http.StatusOK, h.toReceiptDTO(rec))
		return
	}

	names := make(map[uuid.UUID]string, len(rec.Items))
	for _, item := range rec.Items {
		if p, ok := h.catalog.Lookup(item.ProductID); ok {
			names[item.ProductID] = p.Name
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := receipt.Render(w, rec, names); err != nil {
		h.logger.Warn("render receipt", zap.String("receipt_id", string(id)), zap.Error(err))
	}
}

func (h *Handler) checkoutAction(w http.ResponseWriter, r *http.Request, status int, fn func(*http.Request, *checkout.Workflow) error) {
	term, ok := h.terminal(w, r)
	if !ok {
		return
	}

	if err := fn(r, term.Checkout); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSession(w, term, status)
}

func (h *Handler) terminal(w http.ResponseWriter, r *http.Request) (*Terminal, bool) {
	variant := checkout.Variant(chi.URLParam(r, "variant"))
	ownerID := chi.URLParam(r, "ownerID")

	term, err := h.terminals.Get(r.Context(), variant, ownerID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return term, true
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, term *Terminal, status int) {
	snapshot, err := term.Store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, status, CartDTO{
		OwnerID:   snapshot.OwnerID,
		Mode:      string(snapshot.Mode),
		Count:     snapshot.Count(),
		Locked:    term.Store.IsLocked(),
		Items:     h.toItemDTOs(snapshot.Items),
		Breakdown: toBreakdownDTO(pricing.Compute(snapshot.Items, term.Config.Pricing)),
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, term *Terminal, status int) {
	session, _ := term.Checkout.Session()

	var rec *domain.Receipt
	if r, ok := term.Checkout.Receipt(); ok {
		rec = &r
	}
	writeJSON(w, status, h.toSessionDTO(session, term.Checkout.AwaitingConfirmation(), rec))
}

// badRequest marks failures caused by the request itself, such as an
// undecodable body or an unusable owner ID.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, http.StatusText(status), err)
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, errUnknownVariant):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrReceiptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCartLocked),
		errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrCheckoutInProgress),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCartChanged):
		return http.StatusConflict
	case domain.IsClientError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
