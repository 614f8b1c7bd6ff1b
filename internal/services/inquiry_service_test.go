package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
)

func newTestInquiryService(t *testing.T, repo *memoryInquiryRepository, notifications *recordingDispatcher) InquiryService {
	t.Helper()
	svc, err := NewInquiryService(InquiryServiceDeps{
		Inquiries:     repo,
		Notifications: notifications,
		Clock:         fixedClock(time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)),
		IDGenerator:   sequentialIDs("Q"),
	})
	if err != nil {
		t.Fatalf("new inquiry service: %v", err)
	}
	return svc
}

func validInquiry() SubmitInquiryCommand {
	return SubmitInquiryCommand{
		CompanyName:      "Acme  Logistics",
		ContactPerson:    "Ravi Kumar",
		ContactEmail:     " Ravi@Acme.test ",
		ContactPhone:     "9123456780",
		InquiryDetails:   "Need 200 <b>power banks</b> for staff.<script>alert(1)</script>",
		EstimatedBudget:  "₹5,00,000",
		RequiredProducts: []string{"Power Bank 20000mAh", " power bank 20000mah ", "", "USB-C Cable"},
	}
}

func TestInquiryServiceSubmitSanitizesAndAcknowledges(t *testing.T) {
	repo := newMemoryInquiryRepository()
	notifications := &recordingDispatcher{}
	svc := newTestInquiryService(t, repo, notifications)

	inquiry, err := svc.Submit(context.Background(), validInquiry())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inquiry.ID != "inq_Q001" || inquiry.Status != domain.InquiryStatusPending {
		t.Fatalf("unexpected inquiry: %+v", inquiry)
	}
	if inquiry.CompanyName != "Acme Logistics" || inquiry.ContactEmail != "ravi@acme.test" {
		t.Fatalf("expected normalised contact fields, got %q %q", inquiry.CompanyName, inquiry.ContactEmail)
	}
	if inquiry.InquiryDetails != "Need 200 power banks for staff." {
		t.Fatalf("expected markup stripped, got %q", inquiry.InquiryDetails)
	}
	if len(inquiry.RequiredProducts) != 2 {
		t.Fatalf("expected deduplicated products, got %v", inquiry.RequiredProducts)
	}
	if _, err := repo.FindByID(context.Background(), inquiry.ID); err != nil {
		t.Fatalf("expected inquiry stored: %v", err)
	}

	n := notifications.last()
	if n.Kind != domain.NotificationCorporateInquiryAck || n.InquiryID != inquiry.ID || n.Email != "ravi@acme.test" {
		t.Fatalf("unexpected acknowledgement: %+v", n)
	}
}

func TestInquiryServiceSubmitValidation(t *testing.T) {
	cases := map[string]func(cmd *SubmitInquiryCommand){
		"company":      func(cmd *SubmitInquiryCommand) { cmd.CompanyName = "<i></i>" },
		"contact":      func(cmd *SubmitInquiryCommand) { cmd.ContactPerson = " " },
		"email":        func(cmd *SubmitInquiryCommand) { cmd.ContactEmail = "not-an-email" },
		"phone":        func(cmd *SubmitInquiryCommand) { cmd.ContactPhone = "" },
		"details":      func(cmd *SubmitInquiryCommand) { cmd.InquiryDetails = "<p> </p>" },
		"display form": func(cmd *SubmitInquiryCommand) { cmd.ContactEmail = "Ravi <ravi@acme.test>" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			notifications := &recordingDispatcher{}
			svc := newTestInquiryService(t, newMemoryInquiryRepository(), notifications)
			cmd := validInquiry()
			mutate(&cmd)
			if _, err := svc.Submit(context.Background(), cmd); !errors.Is(err, ErrInquiryInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if len(notifications.kinds()) != 0 {
				t.Fatalf("expected no acknowledgement for rejected inquiry")
			}
		})
	}
}

func TestInquiryServiceAdminUpdate(t *testing.T) {
	repo := newMemoryInquiryRepository()
	svc := newTestInquiryService(t, repo, &recordingDispatcher{})
	ctx := context.Background()
	inquiry, err := svc.Submit(ctx, validInquiry())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	quoted := domain.InquiryStatusQuoted
	pricing := "  12% off list for 200+ units  "
	updated, err := svc.Update(ctx, UpdateInquiryCommand{InquiryID: inquiry.ID, Status: &quoted, SpecialPricing: &pricing, ActorID: "staff-1"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.InquiryStatusQuoted || updated.SpecialPricing == nil || *updated.SpecialPricing != "12% off list for 200+ units" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	empty := ""
	cleared, err := svc.Update(ctx, UpdateInquiryCommand{InquiryID: inquiry.ID, SpecialPricing: &empty})
	if err != nil {
		t.Fatalf("clear pricing: %v", err)
	}
	if cleared.SpecialPricing != nil || cleared.Status != domain.InquiryStatusQuoted {
		t.Fatalf("expected pricing cleared and status kept, got %+v", cleared)
	}

	page, err := svc.List(ctx, domain.InquiryStatusQuoted, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one quoted inquiry, got %d", len(page.Items))
	}
}

func TestInquiryServiceUpdateErrors(t *testing.T) {
	svc := newTestInquiryService(t, newMemoryInquiryRepository(), &recordingDispatcher{})
	ctx := context.Background()
	closed := domain.InquiryStatusClosed
	bogus := domain.InquiryStatus("archived")

	if _, err := svc.Update(ctx, UpdateInquiryCommand{InquiryID: "inq_missing", Status: &closed}); !errors.Is(err, ErrInquiryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Update(ctx, UpdateInquiryCommand{InquiryID: "inq_1", Status: &bogus}); !errors.Is(err, ErrInquiryInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := svc.Update(ctx, UpdateInquiryCommand{InquiryID: "inq_1"}); !errors.Is(err, ErrInquiryInvalidInput) {
		t.Fatalf("expected empty update rejected, got %v", err)
	}
}
