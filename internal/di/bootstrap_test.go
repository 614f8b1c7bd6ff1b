package di

import (
	"reflect"
	"testing"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
)

func envMap(values map[string]string) EnvLookup {
	return func(key string) string { return values[key] }
}

func TestRequiredSecretNamesDefaults(t *testing.T) {
	got := RequiredSecretNames(envMap(nil))
	want := []string{"Payments.Razorpay.KeySecret", "Shipping.APIToken"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected secrets %v", got)
	}
}

func TestRequiredSecretNamesFollowsConfiguredProviders(t *testing.T) {
	got := RequiredSecretNames(envMap(map[string]string{
		"API_PAYMENTS_DEFAULT_PROVIDER":    "stripe",
		"API_INVOICING_BASE_URL":           "https://books.example.com",
		"API_NOTIFICATIONS_EMAIL_BASE_URL": "https://mail.example.com",
		"API_NOTIFICATIONS_TRANSPORT":      "AMQP",
		"API_SECURITY_HMAC_SECRETS":        "Shipping=secret://hmac/shipping, broken, =x",
	}))
	want := []string{
		"Invoicing.APIToken",
		"Notifications.AMQPURL",
		"Notifications.Email.APIKey",
		"Payments.Stripe.APIKey",
		"Security.HMAC.Secrets[shipping]",
		"Shipping.APIToken",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected secrets %v", got)
	}
}

func TestNotificationChannelsSkipsUnconfiguredSenders(t *testing.T) {
	renderer, email, sms, err := NotificationChannels(config.NotificationsConfig{
		SMS: config.SMSProviderConfig{BaseURL: "https://sms.example.com", APIKey: "k", SenderID: "GADGET"},
	}, 0)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if renderer == nil {
		t.Fatalf("expected renderer")
	}
	if email != nil {
		t.Fatalf("expected email sender to be skipped")
	}
	if sms == nil {
		t.Fatalf("expected sms sender")
	}
}
