package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

// ErrNoRecipient reports a send attempt without an address or number.
var ErrNoRecipient = errors.New("notify: recipient is required")

// EmailConfig configures the transactional email API.
type EmailConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// EmailClient posts rendered HTML email to the provider.
type EmailClient struct {
	http *httpx.JSONClient
	from string
}

// NewEmailClient builds an email client.
func NewEmailClient(cfg EmailConfig) *EmailClient {
	return &EmailClient{
		http: httpx.NewJSONClient(cfg.BaseURL, cfg.Timeout,
			httpx.WithBearerToken(cfg.APIKey),
			httpx.WithHTTPClient(cfg.HTTPClient),
		),
		from: strings.TrimSpace(cfg.From),
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *EmailClient) SendEmail(ctx context.Context, to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	if err := c.http.Do(ctx, http.MethodPost, "/emails", emailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}, nil); err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}

// SMSConfig configures the SMS API.
type SMSConfig struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// SMSClient posts text messages to the provider.
type SMSClient struct {
	http   *httpx.JSONClient
	sender string
}

// NewSMSClient builds an SMS client.
func NewSMSClient(cfg SMSConfig) *SMSClient {
	return &SMSClient{
		http: httpx.NewJSONClient(cfg.BaseURL, cfg.Timeout,
			httpx.WithHeader("X-API-Key", cfg.APIKey),
			httpx.WithHTTPClient(cfg.HTTPClient),
		),
		sender: strings.TrimSpace(cfg.SenderID),
	}
}

type smsRequest struct {
	Sender string `json:"sender"`
	To     string `json:"to"`
	Body   string `json:"body"`
}

func (c *SMSClient) SendSMS(ctx context.Context, to, body string) error {
	to = NormalizeIndianMobile(to)
	if to == "" {
		return ErrNoRecipient
	}
	if err := c.http.Do(ctx, http.MethodPost, "/sms", smsRequest{Sender: c.sender, To: to, Body: body}, nil); err != nil {
		return fmt.Errorf("notify: send sms: %w", err)
	}
	return nil
}

// NormalizeIndianMobile reduces a phone number to +91XXXXXXXXXX, or "" when it is not a 10-digit mobile.
func NormalizeIndianMobile(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return "+91" + digits
}
