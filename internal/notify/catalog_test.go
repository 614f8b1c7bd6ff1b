package notify

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID: "ord_01J",
		Items: []domain.CartLineItem{
			{ProductID: "p1", Name: "Noise Cancelling Earbuds", UnitPrice: 1000, Quantity: 2},
		},
		Subtotal:        2000,
		CouponCode:      "FLAT500",
		CouponDiscount:  500,
		DeliveryFee:     0,
		Total:           1500,
		PaymentMethod:   domain.PaymentMethodGateway,
		ShippingCourier: "Delhivery",
		ShippingAddress: domain.Address{FullName: "Asha <script>alert(1)</script>", City: "Bengaluru", State: "KA", Pincode: "560001"},
	}
}

func TestDefaultCatalogCoversEveryKind(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	for _, kind := range []domain.NotificationKind{
		domain.NotificationOrderConfirmed,
		domain.NotificationShipmentUpdate,
		domain.NotificationWelcome,
		domain.NotificationPasswordReset,
		domain.NotificationCorporateInquiryAck,
	} {
		require.True(t, catalog.Has(kind), "missing template %s", kind)
	}
}

func TestRenderOrderConfirmed(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	msg, err := catalog.Render(domain.NotificationOrderConfirmed, Data{Brand: "Genius", SupportEmail: "care@example.com", Order: sampleOrder()})
	require.NoError(t, err)
	require.Equal(t, "Genius: order ord_01J confirmed", msg.Subject)
	require.Contains(t, msg.SMS, "₹1,500")
	require.NotContains(t, msg.SMS, "Pay on delivery")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("script").Length())
	require.Equal(t, "Noise Cancelling Earbuds", strings.TrimSpace(doc.Find("table tbody tr td").First().Text()))
	require.Contains(t, doc.Find("li").Text(), "Delivery: Free")
	require.Contains(t, doc.Find("strong").Text(), "Total: ₹1,500")
}

func TestRenderPasswordResetHasNoSMS(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	msg, err := catalog.Render(domain.NotificationPasswordReset, Data{Brand: "Genius", Email: "a@example.com", ResetLink: "https://auth.example.com/reset?oob=1"})
	require.NoError(t, err)
	require.Empty(t, msg.SMS)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
	require.NoError(t, err)
	href, ok := doc.Find("a").Attr("href")
	require.True(t, ok)
	require.Equal(t, "https://auth.example.com/reset?oob=1", href)
	rel, _ := doc.Find("a").Attr("rel")
	require.Contains(t, rel, "nofollow")
}

func TestRenderUnknownKind(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	_, err = catalog.Render("refund_issued", Data{})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoadCatalogRequiresSubject(t *testing.T) {
	_, err := LoadCatalog(fstest.MapFS{"welcome.md": {Data: []byte("---\nsms: hi\n---\nbody")}})
	require.Error(t, err)
}

func TestFormatINR(t *testing.T) {
	printer := message.NewPrinter(language.MustParse("en-IN"))
	require.Equal(t, "₹49", FormatINR(printer, 49))
	require.Equal(t, "₹1,049", FormatINR(printer, 1049))
	require.Equal(t, "-₹500", FormatINR(printer, -500))
}
