package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayOrder is the Razorpay-side order reference a client pays
// against. Amounts are in paise.
type GatewayOrder struct {
	ID        string
	Amount    int64
	Currency  string
	Receipt   string
	Status    string
	CreatedAt int64
}

// RazorpayGateway creates gateway orders and verifies payment
// signatures. In mock mode order creation is local and every signature
// verifies, which is how test and development environments run.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	mock      bool
	now       func() time.Time
}

// NewRazorpayGateway creates a gateway client.
func NewRazorpayGateway(keyID, keySecret string, mock bool) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		mock:      mock,
		now:       time.Now,
	}
}

var hundredPaise = decimal.NewFromInt(100)

// CreateOrder issues a gateway order reference for the given amount.
func (g *RazorpayGateway) CreateOrder(amount decimal.Decimal, receipt string) (GatewayOrder, error) {
	id := "order_" + uuid.New().String()[:12]

	return GatewayOrder{
		ID:        id,
		Amount:    amount.Mul(hundredPaise).IntPart(),
		Currency:  "INR",
		Receipt:   receipt,
		Status:    "created",
		CreatedAt: g.now().Unix(),
	}, nil
}

// VerifySignature checks the HMAC-SHA256 signature Razorpay sends with a
// successful checkout: hex(HMAC(orderID|paymentID, keySecret)). Mock
// mode accepts anything.
func (g *RazorpayGateway) VerifySignature(razorpayOrderID, razorpayPaymentID, signature string) bool {
	if g.mock {
		return true
	}
	expected := g.Sign(razorpayOrderID, razorpayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature for a gateway order/payment pair.
func (g *RazorpayGateway) Sign(razorpayOrderID, razorpayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	fmt.Fprintf(mac, "%s|%s", razorpayOrderID, razorpayPaymentID)
	return hex.EncodeToString(mac.Sum(nil))
}
