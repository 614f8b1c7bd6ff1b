package firestore

import (
	"context"
	"strings"
	"testing"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
)

func validOrderDocument() orderDocument {
	created := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	return orderDocument{
		UserID: "user-1",
		Items: []lineItemDocument{{
			ProductID: "prod-1", Name: "USB-C Cable", UnitPrice: 299, OriginalPrice: 399, Quantity: 2,
		}},
		Subtotal: 598,
		Total:    598,
		ShippingAddress: addressDocument{
			FullName: "Asha Rao", Phone: "9876543210", AddressLine1: "12 MG Road",
			City: "Bengaluru", State: "Karnataka", Pincode: "560001",
		},
		PaymentMethod: "gateway",
		PaymentStatus: "pending",
		Status:        "pending",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestToDomainOrderAcceptsHistoricalPaymentFailed(t *testing.T) {
	doc := validOrderDocument()
	doc.Status = "payment_failed"
	doc.PaymentStatus = "failed"

	order, err := toDomainOrder("ord_1", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPaymentFailed || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestToDomainOrderRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]func(*orderDocument){
		"unknown status":         func(d *orderDocument) { d.Status = "lost" },
		"unknown payment status": func(d *orderDocument) { d.PaymentStatus = "maybe" },
		"unknown method":         func(d *orderDocument) { d.PaymentMethod = "barter" },
		"zero quantity":          func(d *orderDocument) { d.Items[0].Quantity = 0 },
		"missing product":        func(d *orderDocument) { d.Items[0].ProductID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			doc := validOrderDocument()
			mutate(&doc)
			if _, err := toDomainOrder("ord_1", doc); err == nil {
				t.Fatal("expected mapping error")
			}
		})
	}
}

func TestCloneOrderIsolatesSnapshot(t *testing.T) {
	order, err := toDomainOrder("ord_1", validOrderDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracking := "AWB1"
	order.TrackingID = &tracking

	dup := cloneOrder(order)
	dup.Items[0].UnitPrice = 1
	*dup.TrackingID = "AWB2"

	if order.Items[0].UnitPrice != 299 || *order.TrackingID != "AWB1" {
		t.Fatalf("clone shares state with original: %+v", order)
	}
}

func TestToDomainProductDefaults(t *testing.T) {
	product, err := toDomainProduct("prod-1", productDocument{Name: " Charger ", Price: 999, Images: []string{"a.jpg", "b.jpg"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !product.Active || product.OriginalPrice != 999 || product.Image != "a.jpg" || product.Name != "Charger" {
		t.Fatalf("unexpected product %+v", product)
	}

	inactive := false
	product, err = toDomainProduct("prod-2", productDocument{Name: "Case", Price: 10, Active: &inactive})
	if err != nil || product.Active {
		t.Fatalf("expected inactive product, got %+v err=%v", product, err)
	}

	if _, err := toDomainProduct("prod-3", productDocument{Price: 10}); err == nil {
		t.Fatal("expected error for unnamed product")
	}
}

func TestToDomainCartDropsEmptyCoupon(t *testing.T) {
	session, err := toDomainCart("user-1", cartDocument{Coupon: &couponDocument{Code: " "}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Coupon != nil || session.UserID != "user-1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if _, err := toDomainCart("user-1", cartDocument{Coupon: &couponDocument{Code: "SAVE10", DiscountAmount: -1}}); err == nil {
		t.Fatal("expected negative discount to be rejected")
	}
}

func TestCollectPageSkipsRejectedAndBuildsToken(t *testing.T) {
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	docs := []pfirestore.Document[inquiryDocument]{
		{ID: "inq_3", Data: inquiryDocument{CompanyName: "C", Status: "pending", CreatedAt: base.Add(3 * time.Hour)}},
		{ID: "inq_2", Data: inquiryDocument{CompanyName: "B", Status: "archived", CreatedAt: base.Add(2 * time.Hour)}},
		{ID: "inq_1", Data: inquiryDocument{CompanyName: "A", Status: "quoted", CreatedAt: base.Add(time.Hour)}},
	}

	var rejected []string
	opts := applyOptions([]Option{WithLogger(func(_ context.Context, event string, fields map[string]any) {
		rejected = append(rejected, fields["documentId"].(string))
	})})

	page := collectPage(context.Background(), opts, inquiryCollection, docs, pagination.Params{PageSize: 2},
		func(doc pfirestore.Document[inquiryDocument]) (domain.CorporateInquiry, error) {
			return toDomainInquiry(doc.ID, doc.Data)
		},
		func(i domain.CorporateInquiry) time.Time { return i.CreatedAt },
	)

	if len(page.Items) != 1 || page.Items[0].ID != "inq_3" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if strings.Join(rejected, ",") != "inq_2" {
		t.Fatalf("expected inq_2 rejected, got %v", rejected)
	}
	cursor, err := pagination.DecodeToken(page.NextPageToken)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if cursor.ID != "inq_2" {
		t.Fatalf("expected cursor at inq_2, got %+v", cursor)
	}
}
