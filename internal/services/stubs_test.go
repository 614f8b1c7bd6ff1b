package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/payments"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string {
	switch {
	case e.notFound:
		return "not found"
	case e.conflict:
		return "conflict"
	case e.unavailable:
		return "unavailable"
	}
	return "repository error"
}

func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}

// memoryOrderRepository mirrors the transactional Update contract of the Firestore repository.
type memoryOrderRepository struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	insertErr error
	updateErr error
	updates   int
}

func newMemoryOrderRepository(orders ...domain.Order) *memoryOrderRepository {
	repo := &memoryOrderRepository{orders: map[string]domain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *memoryOrderRepository) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.orders[order.ID]; ok {
		return &repositoryErrorStub{conflict: true}
	}
	order.Items = slices.Clone(order.Items)
	r.orders[order.ID] = order
	return nil
}

func (r *memoryOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, &repositoryErrorStub{notFound: true}
	}
	return order, nil
}

func (r *memoryOrderRepository) Update(_ context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return domain.Order{}, r.updateErr
	}
	current, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, &repositoryErrorStub{notFound: true}
	}
	working := current
	working.Items = slices.Clone(current.Items)
	if err := mutate(&working); err != nil {
		if errors.Is(err, repositories.ErrSkipUpdate) {
			return current, nil
		}
		return domain.Order{}, err
	}
	r.orders[orderID] = working
	r.updates++
	return working, nil
}

func (r *memoryOrderRepository) ListByUser(_ context.Context, userID string, _ pagination.Params) (domain.CursorPage[domain.Order], error) {
	return r.list(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *memoryOrderRepository) ListByStatus(_ context.Context, status domain.OrderStatus, _ pagination.Params) (domain.CursorPage[domain.Order], error) {
	return r.list(func(o domain.Order) bool { return status == "" || o.Status == status }), nil
}

func (r *memoryOrderRepository) list(keep func(domain.Order) bool) domain.CursorPage[domain.Order] {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Order
	for _, o := range r.orders {
		if keep(o) {
			items = append(items, o)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return domain.CursorPage[domain.Order]{Items: items}
}

func (r *memoryOrderRepository) get(orderID string) domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[orderID]
}

func (r *memoryOrderRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// contendedOrderRepository replays an Update the way a Firestore transaction does when its commit
// aborts: the mutation first runs against the document as read, a competing write lands, and the
// mutation runs again against the fresh document. The competing write is applied once.
type contendedOrderRepository struct {
	*memoryOrderRepository
	mu      sync.Mutex
	compete func(*domain.Order)
	retries int
}

func (r *contendedOrderRepository) Update(ctx context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	r.mu.Lock()
	compete := r.compete
	r.compete = nil
	r.mu.Unlock()

	if compete != nil {
		stale := r.get(orderID)
		stale.Items = slices.Clone(stale.Items)
		if err := mutate(&stale); err != nil && !errors.Is(err, repositories.ErrSkipUpdate) {
			return domain.Order{}, err
		}
		if _, err := r.memoryOrderRepository.Update(ctx, orderID, func(o *domain.Order) error {
			compete(o)
			return nil
		}); err != nil {
			return domain.Order{}, err
		}
		r.mu.Lock()
		r.retries++
		r.mu.Unlock()
	}
	return r.memoryOrderRepository.Update(ctx, orderID, mutate)
}

func (r *contendedOrderRepository) retried() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retries
}

type memoryCartRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.CartSession
	deleted  []string
	getErr   error
}

func newMemoryCartRepository(sessions ...domain.CartSession) *memoryCartRepository {
	repo := &memoryCartRepository{sessions: map[string]domain.CartSession{}}
	for _, s := range sessions {
		repo.sessions[s.UserID] = s
	}
	return repo
}

func (r *memoryCartRepository) Get(_ context.Context, userID string) (domain.CartSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.CartSession{}, r.getErr
	}
	session, ok := r.sessions[userID]
	if !ok {
		return domain.CartSession{UserID: userID}, nil
	}
	session.Items = slices.Clone(session.Items)
	return session, nil
}

func (r *memoryCartRepository) Save(_ context.Context, session domain.CartSession) (domain.CartSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.Items = slices.Clone(session.Items)
	r.sessions[session.UserID] = session
	return session, nil
}

func (r *memoryCartRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	r.deleted = append(r.deleted, userID)
	return nil
}

func (r *memoryCartRepository) session(userID string) (domain.CartSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

type memoryProductRepository struct {
	products map[string]domain.Product
	err      error
}

func newMemoryProductRepository(products ...domain.Product) *memoryProductRepository {
	repo := &memoryProductRepository{products: map[string]domain.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryProductRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	p, ok := r.products[productID]
	if !ok {
		return domain.Product{}, &repositoryErrorStub{notFound: true}
	}
	return p, nil
}

func (r *memoryProductRepository) FindByIDs(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memoryInquiryRepository struct {
	mu        sync.Mutex
	inquiries map[string]domain.CorporateInquiry
}

func newMemoryInquiryRepository() *memoryInquiryRepository {
	return &memoryInquiryRepository{inquiries: map[string]domain.CorporateInquiry{}}
}

func (r *memoryInquiryRepository) Insert(_ context.Context, inquiry domain.CorporateInquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inquiries[inquiry.ID] = inquiry
	return nil
}

func (r *memoryInquiryRepository) FindByID(_ context.Context, inquiryID string) (domain.CorporateInquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[inquiryID]
	if !ok {
		return domain.CorporateInquiry{}, &repositoryErrorStub{notFound: true}
	}
	return inquiry, nil
}

func (r *memoryInquiryRepository) Update(_ context.Context, inquiryID string, mutate repositories.InquiryMutation) (domain.CorporateInquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[inquiryID]
	if !ok {
		return domain.CorporateInquiry{}, &repositoryErrorStub{notFound: true}
	}
	if err := mutate(&inquiry); err != nil {
		return domain.CorporateInquiry{}, err
	}
	r.inquiries[inquiryID] = inquiry
	return inquiry, nil
}

func (r *memoryInquiryRepository) List(_ context.Context, status domain.InquiryStatus, _ pagination.Params) (domain.CursorPage[domain.CorporateInquiry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.CorporateInquiry
	for _, inquiry := range r.inquiries {
		if status == "" || inquiry.Status == status {
			items = append(items, inquiry)
		}
	}
	return domain.CursorPage[domain.CorporateInquiry]{Items: items}, nil
}

type memoryUserRepository struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
	now      func() time.Time
}

func newMemoryUserRepository(now func() time.Time) *memoryUserRepository {
	return &memoryUserRepository{profiles: map[string]domain.UserProfile{}, now: now}
}

func (r *memoryUserRepository) Upsert(_ context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now()
	profile.CreatedAt = ts
	if existing, ok := r.profiles[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
	}
	profile.UpdatedAt = ts
	r.profiles[profile.ID] = profile
	return profile, nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, userID string) (domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return domain.UserProfile{}, &repositoryErrorStub{notFound: true}
	}
	return profile, nil
}

type stubPaymentGateway struct {
	mu         sync.Mutex
	createFunc func(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error)
	verifyFunc func(ctx context.Context, provider string, req payments.VerificationRequest) (payments.Verification, error)
	creates    []payments.CreateOrderRequest
	verifies   []payments.VerificationRequest
}

func (g *stubPaymentGateway) CreateOrder(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error) {
	g.mu.Lock()
	g.creates = append(g.creates, req)
	g.mu.Unlock()
	if g.createFunc != nil {
		return g.createFunc(ctx, paymentCtx, req)
	}
	return payments.GatewayOrder{
		ID:       "gw_" + req.Receipt,
		Provider: "razorpay",
		Amount:   payments.ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		KeyID:    "rzp_test_key",
	}, nil
}

func (g *stubPaymentGateway) VerifyPayment(ctx context.Context, provider string, req payments.VerificationRequest) (payments.Verification, error) {
	g.mu.Lock()
	g.verifies = append(g.verifies, req)
	g.mu.Unlock()
	if g.verifyFunc != nil {
		return g.verifyFunc(ctx, provider, req)
	}
	return payments.Verification{
		Provider:       provider,
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Status:         payments.StatusSucceeded,
	}, nil
}

func (g *stubPaymentGateway) createCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.creates)
}

func (g *stubPaymentGateway) verifyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.verifies)
}

// recordingDispatcher captures submitted notifications.
type recordingDispatcher struct {
	mu        sync.Mutex
	submitted []domain.Notification
}

func (d *recordingDispatcher) Submit(_ context.Context, n domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = append(d.submitted, n)
}

func (d *recordingDispatcher) Deliver(context.Context, domain.Notification) error {
	return nil
}

func (d *recordingDispatcher) kinds() []domain.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(d.submitted))
	for _, n := range d.submitted {
		out = append(out, n.Kind)
	}
	return out
}

func (d *recordingDispatcher) last() domain.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.submitted) == 0 {
		return domain.Notification{}
	}
	return d.submitted[len(d.submitted)-1]
}

type recordingLogger struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
}

func (l *recordingLogger) log(_ context.Context, event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.events, event)
}

func (l *recordingLogger) fieldsOf(event string) map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i] == event {
			return l.fields[i]
		}
	}
	return nil
}

func testAddress() Address {
	return Address{
		FullName:     "Asha Rao",
		Phone:        "9876543210",
		Email:        "asha@example.com",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Pincode:      "560001",
	}
}

func pendingGatewayOrder(id, userID string, total int64) domain.Order {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:              id,
		UserID:          userID,
		Items:           []domain.CartLineItem{{ProductID: "p1", Name: "Smart Watch", UnitPrice: total, OriginalPrice: total, Quantity: 1}},
		Subtotal:        total,
		Total:           total,
		ShippingAddress: testAddress(),
		ShippingCourier: "Delhivery",
		PaymentMethod:   domain.PaymentMethodGateway,
		PaymentStatus:   domain.PaymentStatusPending,
		Status:          domain.OrderStatusPending,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}
