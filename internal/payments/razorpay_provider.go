package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

const razorpayProviderName = "razorpay"

// RazorpayProviderConfig configures the order-and-signature gateway.
type RazorpayProviderConfig struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     Logger
}

// RazorpayProvider creates gateway orders over REST and verifies the widget's HMAC-SHA256 signature.
type RazorpayProvider struct {
	client *httpx.JSONClient
	keyID  string
	secret []byte
	logger Logger
}

var _ Provider = (*RazorpayProvider)(nil)

// NewRazorpayProvider validates credentials and builds the REST client.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || secret == "" {
		return nil, errors.New("razorpay: key id and key secret are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("razorpay: base url is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &RazorpayProvider{
		client: httpx.NewJSONClient(cfg.BaseURL, cfg.Timeout,
			httpx.WithBasicAuth(keyID, secret),
			httpx.WithHTTPClient(cfg.HTTPClient),
		),
		keyID:  keyID,
		secret: []byte(secret),
		logger: logger,
	}, nil
}

func (p *RazorpayProvider) Name() string { return razorpayProviderName }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	var resp razorpayOrderResponse
	err := p.client.Do(ctx, http.MethodPost, "/orders", razorpayOrderRequest{
		Amount:   ToMinorUnits(req.Amount),
		Currency: strings.ToUpper(defaultString(req.Currency, "INR")),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}, &resp)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	if strings.TrimSpace(resp.ID) == "" {
		return GatewayOrder{}, errors.New("razorpay: create order: empty order id")
	}
	p.logger(ctx, "payments.razorpay.order.created", map[string]any{
		"gatewayOrderId": resp.ID,
		"receipt":        req.Receipt,
	})
	return GatewayOrder{
		ID:       resp.ID,
		Provider: razorpayProviderName,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Receipt:  resp.Receipt,
		KeyID:    p.keyID,
	}, nil
}

// VerifyPayment checks hex(HMAC-SHA256(secret, orderId|paymentId)) against the widget signature.
func (p *RazorpayProvider) VerifyPayment(_ context.Context, req VerificationRequest) (Verification, error) {
	orderID := strings.TrimSpace(req.GatewayOrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	if orderID == "" || paymentID == "" || strings.TrimSpace(req.Signature) == "" {
		return Verification{}, fmt.Errorf("%w: incomplete payment proof", ErrVerificationFailed)
	}
	expected := p.Sign(orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(req.Signature)))) {
		return Verification{}, fmt.Errorf("%w: signature mismatch for %s", ErrVerificationFailed, orderID)
	}
	return Verification{
		Provider:       razorpayProviderName,
		GatewayOrderID: orderID,
		PaymentID:      paymentID,
		Status:         StatusSucceeded,
	}, nil
}

// Sign computes the signature the checkout widget returns on success.
func (p *RazorpayProvider) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
