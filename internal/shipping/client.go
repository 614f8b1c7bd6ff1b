package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

// Parcel is the nominal package dimension sent with every rate request.
type Parcel struct {
	WeightGrams int
	LengthCM    int
	BreadthCM   int
	HeightCM    int
}

// RateRequest asks for courier quotes to a destination.
type RateRequest struct {
	DestinationPincode string
	CashOnDelivery     bool
	DeclaredValue      int64
}

// Config configures the aggregator client.
type Config struct {
	BaseURL       string
	APIToken      string
	Timeout       time.Duration
	OriginPincode string
	Parcel        Parcel
	HTTPClient    *http.Client
}

// Client talks to the shipping aggregator's serviceability and rate endpoints.
type Client struct {
	http   *httpx.JSONClient
	origin string
	parcel Parcel
}

// NewClient builds a Client; an empty base URL yields a client whose calls fail with httpx.ErrClientNotConfigured.
func NewClient(cfg Config) (*Client, error) {
	origin := strings.TrimSpace(cfg.OriginPincode)
	if cfg.BaseURL != "" && origin == "" {
		return nil, errors.New("shipping: origin pincode is required")
	}
	return &Client{
		http: httpx.NewJSONClient(cfg.BaseURL, cfg.Timeout,
			httpx.WithBearerToken(cfg.APIToken),
			httpx.WithHTTPClient(cfg.HTTPClient),
		),
		origin: origin,
		parcel: cfg.Parcel,
	}, nil
}

type serviceabilityResponse struct {
	Serviceable bool   `json:"serviceable"`
	Message     string `json:"message,omitempty"`
}

// CheckServiceability reports whether the aggregator delivers to pincode.
func (c *Client) CheckServiceability(ctx context.Context, pincode string) (bool, error) {
	query := url.Values{}
	query.Set("pickup_pincode", c.origin)
	query.Set("delivery_pincode", pincode)
	var resp serviceabilityResponse
	if err := c.http.Do(ctx, http.MethodGet, "/serviceability?"+query.Encode(), nil, &resp); err != nil {
		return false, fmt.Errorf("shipping: serviceability %s: %w", pincode, err)
	}
	return resp.Serviceable, nil
}

type rateRequest struct {
	PickupPincode   string `json:"pickup_pincode"`
	DeliveryPincode string `json:"delivery_pincode"`
	WeightGrams     int    `json:"weight_grams"`
	LengthCM        int    `json:"length_cm"`
	BreadthCM       int    `json:"breadth_cm"`
	HeightCM        int    `json:"height_cm"`
	COD             bool   `json:"cod"`
	DeclaredValue   int64  `json:"declared_value"`
}

type courierRate struct {
	CourierName           string          `json:"courier_name"`
	Rate                  decimal.Decimal `json:"rate"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days"`
}

type rateResponse struct {
	Couriers []courierRate `json:"couriers"`
}

// GetRates returns courier options in the aggregator's order. Fractional rates round half up to whole rupees.
func (c *Client) GetRates(ctx context.Context, req RateRequest) ([]domain.ShippingRateOption, error) {
	var resp rateResponse
	err := c.http.Do(ctx, http.MethodPost, "/rates", rateRequest{
		PickupPincode:   c.origin,
		DeliveryPincode: req.DestinationPincode,
		WeightGrams:     c.parcel.WeightGrams,
		LengthCM:        c.parcel.LengthCM,
		BreadthCM:       c.parcel.BreadthCM,
		HeightCM:        c.parcel.HeightCM,
		COD:             req.CashOnDelivery,
		DeclaredValue:   req.DeclaredValue,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("shipping: rates %s: %w", req.DestinationPincode, err)
	}

	options := make([]domain.ShippingRateOption, 0, len(resp.Couriers))
	for _, courier := range resp.Couriers {
		name := strings.TrimSpace(courier.CourierName)
		if name == "" || courier.Rate.IsNegative() {
			continue
		}
		options = append(options, domain.ShippingRateOption{
			CourierName:           name,
			Rate:                  courier.Rate.Round(0).IntPart(),
			EstimatedDeliveryDays: courier.EstimatedDeliveryDays,
		})
	}
	return options, nil
}
