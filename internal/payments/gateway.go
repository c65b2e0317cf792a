// Package payments creates gateway orders for online consultations and
// verifies the signatures the gateway returns after checkout.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

var (
	// ErrGateway marks failures talking to the payment gateway.
	ErrGateway = errors.New("payments: gateway error")
	// ErrInvalidSignature is returned when a payment signature does not match.
	ErrInvalidSignature = errors.New("payments: invalid signature")
)

var tracer = otel.Tracer("clinic.internal.payments")

// Order is a gateway order the checkout widget pays against.
type Order struct {
	ID       string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Gateway creates orders.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency string) (*Order, error)
	KeyID() string
}

// orderAPI is the part of the Razorpay SDK used here.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway creates orders through the Razorpay Orders API.
type RazorpayGateway struct {
	orders orderAPI
	keyID  string
	logger *logging.Logger
}

func NewRazorpayGateway(keyID, keySecret string, logger *logging.Logger) *RazorpayGateway {
	if keyID == "" || keySecret == "" {
		return nil
	}
	client := razorpay.NewClient(keyID, keySecret)
	return newRazorpayGateway(client.Order, keyID, logger)
}

func newRazorpayGateway(orders orderAPI, keyID string, logger *logging.Logger) *RazorpayGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &RazorpayGateway{orders: orders, keyID: keyID, logger: logger}
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder creates an order for amountMinor in currency. The SDK call has
// no context support, so ctx bounds how long the caller waits for it.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency string) (*Order, error) {
	ctx, span := tracer.Start(ctx, "payments.create_order")
	defer span.End()

	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrGateway)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	receipt := uuid.NewString()
	span.SetAttributes(attribute.String("clinic.receipt", receipt), attribute.Int64("clinic.amount_minor", amountMinor))

	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, fmt.Errorf("%w: create order: %w", ErrGateway, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		span.RecordError(res.err)
		g.logger.Error("razorpay order create failed", "receipt", receipt, "error", res.err)
		return nil, fmt.Errorf("%w: create order: %w", ErrGateway, res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: create order: response missing id", ErrGateway)
	}
	g.logger.Info("razorpay order created", "order_id", id, "receipt", receipt)
	return &Order{ID: id, Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}
