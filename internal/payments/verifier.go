package payments

import (
	"fmt"

	"github.com/razorpay/razorpay-go/utils"
)

// Verifier checks Razorpay checkout signatures against the key secret.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(orderID, paymentID, signature string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: no key secret configured", ErrInvalidSignature)
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	if !utils.VerifyPaymentSignature(params, signature, v.secret) {
		return ErrInvalidSignature
	}
	return nil
}
