package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

// OrderHandler serves POST /api/payments/orders for the consultation fee.
type OrderHandler struct {
	gateway  Gateway
	amount   int64
	currency string
	timeout  time.Duration
	logger   *logging.Logger
}

func NewOrderHandler(gateway Gateway, amountMinor int64, currency string, timeout time.Duration, logger *logging.Logger) *OrderHandler {
	if gateway == nil {
		panic("payments: gateway required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OrderHandler{gateway: gateway, amount: amountMinor, currency: currency, timeout: timeout, logger: logger}
}

type orderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.gateway.CreateOrder(ctx, h.amount, h.currency)
	if err != nil {
		h.logger.Error("payment order failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"message": "Could not start the payment. Please try again.",
			"errors":  map[string][]string{"payment": {"Payment gateway unavailable."}},
		})
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.gateway.KeyID(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
