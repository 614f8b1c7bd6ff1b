package invoicing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

// Invoice is the external invoicing service's record of an order.
type Invoice struct {
	ID     string `json:"id"`
	Number string `json:"invoice_number"`
	URL    string `json:"invoice_url"`
	PDFURL string `json:"pdf_url"`
}

// Config configures the invoicing client.
type Config struct {
	BaseURL    string
	APIToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client creates invoices for paid orders.
type Client struct {
	http *httpx.JSONClient
}

// NewClient builds an invoicing client.
func NewClient(cfg Config) *Client {
	return &Client{http: httpx.NewJSONClient(cfg.BaseURL, cfg.Timeout,
		httpx.WithBearerToken(cfg.APIToken),
		httpx.WithHTTPClient(cfg.HTTPClient),
	)}
}

type invoiceLine struct {
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Amount      int64  `json:"amount"`
}

type invoiceCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
	State   string `json:"state"`
}

type invoiceRequest struct {
	ReferenceID string          `json:"reference_id"`
	Currency    string          `json:"currency"`
	Customer    invoiceCustomer `json:"customer"`
	Lines       []invoiceLine   `json:"line_items"`
	Subtotal    int64           `json:"subtotal"`
	Discount    int64           `json:"discount"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	Shipping    int64           `json:"shipping"`
	Total       int64           `json:"total"`
	PaymentID   string          `json:"payment_reference,omitempty"`
	IssuedAt    time.Time       `json:"issued_at"`
}

// CreateInvoice submits the order's frozen totals; the order id is the idempotent reference.
func (c *Client) CreateInvoice(ctx context.Context, order domain.Order, issuedAt time.Time) (Invoice, error) {
	addr := order.ShippingAddress
	street := addr.AddressLine1
	if addr.AddressLine2 != nil && strings.TrimSpace(*addr.AddressLine2) != "" {
		street += ", " + strings.TrimSpace(*addr.AddressLine2)
	}
	req := invoiceRequest{
		ReferenceID: order.ID,
		Currency:    "INR",
		Customer: invoiceCustomer{
			Name:    addr.FullName,
			Email:   addr.Email,
			Phone:   addr.Phone,
			Address: fmt.Sprintf("%s, %s", street, addr.City),
			Pincode: addr.Pincode,
			State:   addr.State,
		},
		Subtotal:   order.Subtotal,
		Discount:   order.CouponDiscount,
		CouponCode: order.CouponCode,
		Shipping:   order.DeliveryFee,
		Total:      order.Total,
		IssuedAt:   issuedAt.UTC(),
	}
	if order.PaymentID != nil {
		req.PaymentID = *order.PaymentID
	}
	for _, item := range order.Items {
		req.Lines = append(req.Lines, invoiceLine{
			Description: item.Name,
			SKU:         item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.UnitPrice * int64(item.Quantity),
		})
	}

	var invoice Invoice
	if err := c.http.Do(ctx, http.MethodPost, "/invoices", req, &invoice); err != nil {
		return Invoice{}, fmt.Errorf("invoicing: create invoice for %s: %w", order.ID, err)
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return Invoice{}, errors.New("invoicing: response without invoice id")
	}
	return invoice, nil
}

// DownloadPDF streams the invoice document.
func (c *Client) DownloadPDF(ctx context.Context, invoice Invoice) (io.ReadCloser, error) {
	if strings.TrimSpace(invoice.PDFURL) == "" {
		return nil, errors.New("invoicing: invoice has no pdf url")
	}
	return c.http.Download(ctx, invoice.PDFURL)
}
