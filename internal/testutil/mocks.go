package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockTransactor serializes transactions, which is what row locks give the
// engine in PostgreSQL. It does not roll back writes.
type MockTransactor struct {
	mu sync.Mutex
	// Errs are returned, one per call, before fn runs
	Errs  []error
	Calls int
}

// NewMockTransactor creates a new MockTransactor
func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

// WithinTx runs fn while holding the transactor lock
func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return err
		}
	}
	return fn(ctx)
}

// MockGroupRepository is a mock implementation of domain.GroupRepository
type MockGroupRepository struct {
	mu     sync.Mutex
	Groups map[uuid.UUID]*domain.Group
}

// NewMockGroupRepository creates a new MockGroupRepository
func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{Groups: make(map[uuid.UUID]*domain.Group)}
}

// GetByID retrieves a group by ID
func (m *MockGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.Groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, domain.ErrGroupNotFound
}

// AddGroup adds a group and returns it
func (m *MockGroupRepository) AddGroup(name string) *domain.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &domain.Group{ID: uuid.New(), Name: name, Currency: "MYR", CreatedAt: time.Now()}
	m.Groups[g.ID] = g
	return g
}

// MockMemberRepository is a mock implementation of domain.MemberRepository
type MockMemberRepository struct {
	mu      sync.Mutex
	Members map[uuid.UUID]*domain.Member
	ListErr error
}

// NewMockMemberRepository creates a new MockMemberRepository
func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{Members: make(map[uuid.UUID]*domain.Member)}
}

// GetByID retrieves a member by ID
func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.Members[id]; ok {
		cp := *member
		return &cp, nil
	}
	return nil, domain.ErrMemberNotFound
}

// GetByAuthSubject retrieves a member by identity provider subject
func (m *MockMemberRepository) GetByAuthSubject(ctx context.Context, subject string) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.Members {
		if member.AuthSubject == subject {
			cp := *member
			return &cp, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

// ListActiveByGroup returns the active members of a group
func (m *MockMemberRepository) ListActiveByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.Member
	for _, member := range m.Members {
		if member.GroupID == groupID && member.Active {
			cp := *member
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// AddMember adds an active member with the given role
func (m *MockMemberRepository) AddMember(groupID uuid.UUID, name string, role domain.MemberRole) *domain.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	member := &domain.Member{
		ID:          uuid.New(),
		GroupID:     groupID,
		AuthSubject: "auth0|" + name,
		Name:        name,
		Email:       name + "@example.com",
		Role:        role,
		Active:      true,
		JoinedAt:    time.Now().Add(time.Duration(len(m.Members)) * time.Second),
	}
	m.Members[member.ID] = member
	return member
}

// SetMember replaces a stored member
func (m *MockMemberRepository) SetMember(member *domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Members[member.ID] = member
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository
type MockPaymentRepository struct {
	mu        sync.Mutex
	Payments  map[uuid.UUID]*domain.Payment
	CreateErr error
}

// NewMockPaymentRepository creates a new MockPaymentRepository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{Payments: make(map[uuid.UUID]*domain.Payment)}
}

// Create stores a payment
func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	cp := *payment
	m.Payments[cp.ID] = &cp
	out := cp
	return &out, nil
}

// GetByID retrieves a payment by ID
func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// ListByPeriod returns the payments of a period ordered by creation
func (m *MockPaymentRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Payment, 0)
	for _, p := range m.Payments {
		if p.PeriodID == periodID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus changes a payment's status
func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

// Update overwrites a payment's editable fields
func (m *MockPaymentRepository) Update(ctx context.Context, id uuid.UUID, data *domain.UpdatePaymentData) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p.MemberID = data.MemberID
	p.Amount = data.Amount
	p.Status = data.Status
	p.PaymentDate = data.PaymentDate
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

// SetReceiptPath stores the receipt object path
func (m *MockPaymentRepository) SetReceiptPath(ctx context.Context, id uuid.UUID, path string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p.ReceiptPath = &path
	cp := *p
	return &cp, nil
}

// Delete removes a payment
func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Payments[id]; !ok {
		return domain.ErrPaymentNotFound
	}
	delete(m.Payments, id)
	return nil
}

// AddPayment stores a payment directly, bypassing the engine
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	m.Payments[payment.ID] = payment
}

// sumPaid mirrors the recompute statement
func (m *MockPaymentRepository) sumPaid(periodID uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.Payments {
		if p.PeriodID == periodID && p.Status == domain.PaymentStatusPaid {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// MockPeriodRepository is a mock implementation of domain.PeriodRepository.
// RecomputeCollected reads from the linked payment repository.
type MockPeriodRepository struct {
	mu           sync.Mutex
	Periods      map[uuid.UUID]*domain.ContributionPeriod
	payments     *MockPaymentRepository
	RecomputeErr error
	LockCalls    int
}

// NewMockPeriodRepository creates a new MockPeriodRepository
func NewMockPeriodRepository(payments *MockPaymentRepository) *MockPeriodRepository {
	return &MockPeriodRepository{
		Periods:  make(map[uuid.UUID]*domain.ContributionPeriod),
		payments: payments,
	}
}

// Create stores a period, enforcing one per group and month
func (m *MockPeriodRepository) Create(ctx context.Context, period *domain.ContributionPeriod) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Periods {
		if p.GroupID == period.GroupID && p.Year == period.Year && p.Month == period.Month {
			return nil, domain.ErrPeriodAlreadyExists
		}
	}
	if period.ID == uuid.Nil {
		period.ID = uuid.New()
	}
	cp := *period
	m.Periods[cp.ID] = &cp
	out := cp
	return &out, nil
}

// GetByID retrieves a period by ID
func (m *MockPeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPeriodNotFound
}

// GetByIDForUpdate retrieves a period by ID and counts the lock
func (m *MockPeriodRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	m.LockCalls++
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

// GetByGroupMonth retrieves the period of a group for a month
func (m *MockPeriodRepository) GetByGroupMonth(ctx context.Context, groupID uuid.UUID, year, month int) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Periods {
		if p.GroupID == groupID && p.Year == year && p.Month == month {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPeriodNotFound
}

// ListByGroup returns the periods of a group, newest month first
func (m *MockPeriodRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ContributionPeriod, 0)
	for _, p := range m.Periods {
		if p.GroupID == groupID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// RecomputeCollected sets TotalCollected to the sum of paid payments
func (m *MockPeriodRepository) RecomputeCollected(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	if m.RecomputeErr != nil {
		return nil, m.RecomputeErr
	}
	total := m.payments.sumPaid(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Periods[id]
	if !ok {
		return nil, domain.ErrPeriodNotFound
	}
	p.TotalCollected = total
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

// UpdateTotalExpected overwrites the expected total snapshot
func (m *MockPeriodRepository) UpdateTotalExpected(ctx context.Context, id uuid.UUID, total decimal.Decimal) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Periods[id]
	if !ok {
		return nil, domain.ErrPeriodNotFound
	}
	p.TotalExpected = total
	cp := *p
	return &cp, nil
}

// Finalize marks the period finalized
func (m *MockPeriodRepository) Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*domain.ContributionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Periods[id]
	if !ok {
		return nil, domain.ErrPeriodNotFound
	}
	p.IsFinalized = true
	p.FinalizedAt = &at
	cp := *p
	return &cp, nil
}

// AddPeriod stores a period for a month with the given per-member amount
func (m *MockPeriodRepository) AddPeriod(groupID uuid.UUID, year, month int, perMember, totalExpected decimal.Decimal) *domain.ContributionPeriod {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.ContributionPeriod{
		ID:              uuid.New(),
		GroupID:         groupID,
		Year:            year,
		Month:           month,
		PerMemberAmount: perMember,
		TotalExpected:   totalExpected,
		TotalCollected:  decimal.Zero,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	m.Periods[p.ID] = p
	cp := *p
	return &cp
}

// MockPaymentEventRepository is a mock implementation of domain.PaymentEventRepository
type MockPaymentEventRepository struct {
	mu        sync.Mutex
	Events    []*domain.PaymentEvent
	AppendErr error
}

// NewMockPaymentEventRepository creates a new MockPaymentEventRepository
func NewMockPaymentEventRepository() *MockPaymentEventRepository {
	return &MockPaymentEventRepository{}
}

// Append adds an event to the log
func (m *MockPaymentEventRepository) Append(ctx context.Context, event *domain.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	cp := *event
	m.Events = append(m.Events, &cp)
	return nil
}

// ListByPayment returns a payment's events in append order
func (m *MockPaymentEventRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.PaymentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PaymentEvent, 0)
	for _, e := range m.Events {
		if e.PaymentID == paymentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	mu    sync.Mutex
	Loans map[uuid.UUID]*domain.Loan
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{Loans: make(map[uuid.UUID]*domain.Loan)}
}

// Create stores a loan
func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	cp := *loan
	m.Loans[cp.ID] = &cp
	out := cp
	return &out, nil
}

// GetByID retrieves a loan by ID, archived or not
func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.Loans[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) list(match func(*domain.Loan) bool) []*domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Loan, 0)
	for _, l := range m.Loans {
		if l.DeletedAt == nil && match(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedDate.After(out[j].IssuedDate) })
	return out
}

// ListByGroup returns the group's loans that are not archived
func (m *MockLoanRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Loan, error) {
	return m.list(func(l *domain.Loan) bool { return l.GroupID == groupID }), nil
}

// ListByMember returns the member's loans that are not archived
func (m *MockLoanRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error) {
	return m.list(func(l *domain.Loan) bool { return l.MemberID == memberID }), nil
}

// ApplyRepayment decrements the balance under the repository lock
func (m *MockLoanRepository) ApplyRepayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Loan, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Loans[id]
	if !ok || l.DeletedAt != nil {
		return nil, decimal.Zero, domain.ErrLoanNotFound
	}
	previous := l.OutstandingBalance
	l.OutstandingBalance, l.Status = domain.ApplyRepaymentAmount(previous, amount)
	l.UpdatedAt = time.Now()
	cp := *l
	return &cp, previous, nil
}

// SoftDelete archives a loan
func (m *MockLoanRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Loans[id]
	if !ok || l.DeletedAt != nil {
		return domain.ErrLoanNotFound
	}
	l.DeletedAt = &at
	return nil
}

// AddLoan stores an active loan with balance equal to principal
func (m *MockLoanRepository) AddLoan(groupID, memberID uuid.UUID, principal decimal.Decimal) *domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &domain.Loan{
		ID:                 uuid.New(),
		GroupID:            groupID,
		MemberID:           memberID,
		PrincipalAmount:    principal,
		OutstandingBalance: principal,
		Status:             domain.LoanStatusActive,
		IssuedDate:         time.Now(),
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	m.Loans[l.ID] = l
	cp := *l
	return &cp
}

// SetBalance overwrites a loan's stored balance
func (m *MockLoanRepository) SetBalance(id uuid.UUID, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.Loans[id]; ok {
		l.OutstandingBalance = balance
	}
}

// MockLoanRepaymentRepository is a mock implementation of domain.LoanRepaymentRepository
type MockLoanRepaymentRepository struct {
	mu         sync.Mutex
	Repayments []*domain.LoanRepayment
}

// NewMockLoanRepaymentRepository creates a new MockLoanRepaymentRepository
func NewMockLoanRepaymentRepository() *MockLoanRepaymentRepository {
	return &MockLoanRepaymentRepository{}
}

// Create appends a repayment
func (m *MockLoanRepaymentRepository) Create(ctx context.Context, r *domain.LoanRepayment) (*domain.LoanRepayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	m.Repayments = append(m.Repayments, &cp)
	out := cp
	return &out, nil
}

// ListByLoan returns a loan's repayments in append order
func (m *MockLoanRepaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanRepayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.LoanRepayment, 0)
	for _, r := range m.Repayments {
		if r.LoanID == loanID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SumByLoan totals the recorded repayment amounts of a loan
func (m *MockLoanRepaymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, r := range m.Repayments {
		if r.LoanID == loanID {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	mu            sync.Mutex
	Notifications []*domain.Notification
	CreateErr     error
}

// NewMockNotificationRepository creates a new MockNotificationRepository
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

// Create appends a notification
func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	cp := *n
	m.Notifications = append(m.Notifications, &cp)
	out := cp
	return &out, nil
}

// ListByMember returns a member's notifications, newest first
func (m *MockNotificationRepository) ListByMember(ctx context.Context, memberID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, 0)
	for i := len(m.Notifications) - 1; i >= 0; i-- {
		n := m.Notifications[i]
		if n.MemberID != memberID || (unreadOnly && n.Read) {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CountUnread counts a member's unread notifications
func (m *MockNotificationRepository) CountUnread(ctx context.Context, memberID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.Notifications {
		if n.MemberID == memberID && !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification of the member as read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, memberID, id uuid.UUID) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.Notifications {
		if n.ID == id && n.MemberID == memberID {
			n.Read = true
			cp := *n
			return &cp, nil
		}
	}
	return nil, domain.ErrNotificationNotFound
}

// MarkAllRead marks every unread notification of the member as read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, memberID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.Notifications {
		if n.MemberID == memberID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// ForMember returns all stored notifications of a member in insertion order
func (m *MockNotificationRepository) ForMember(memberID uuid.UUID) []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.Notifications {
		if n.MemberID == memberID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

// CapturingNotifier records notifications instead of delivering them
type CapturingNotifier struct {
	mu            sync.Mutex
	Notifications []*domain.Notification
}

// Notify records the notification
func (c *CapturingNotifier) Notify(ctx context.Context, n *domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *n
	c.Notifications = append(c.Notifications, &cp)
}

// All returns the recorded notifications
func (c *CapturingNotifier) All() []*domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Notification(nil), c.Notifications...)
}

// Titles returns the titles of the recorded notifications in order
func (c *CapturingNotifier) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, 0, len(c.Notifications))
	for _, n := range c.Notifications {
		titles = append(titles, n.Title)
	}
	return titles
}

// PublishedEvent is one event captured by CapturingPublisher
type PublishedEvent struct {
	MemberID uuid.UUID
	Event    websocket.Event
}

// CapturingPublisher records published WebSocket events
type CapturingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// Publish records the event
func (c *CapturingPublisher) Publish(memberID uuid.UUID, event websocket.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, PublishedEvent{MemberID: memberID, Event: event})
}

// Types returns the combined event types in publish order
func (c *CapturingPublisher) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.Events))
	for _, e := range c.Events {
		types = append(types, e.Event.Type)
	}
	return types
}

// For returns the event types delivered to one member in publish order
func (c *CapturingPublisher) For(memberID uuid.UUID) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []string
	for _, e := range c.Events {
		if e.MemberID == memberID {
			types = append(types, e.Event.Type)
		}
	}
	return types
}

// MockReceiptStorage is an in-memory storage.ReceiptStorage
type MockReceiptStorage struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	UploadErr error
}

// NewMockReceiptStorage creates a new MockReceiptStorage
func NewMockReceiptStorage() *MockReceiptStorage {
	return &MockReceiptStorage{Objects: make(map[string][]byte)}
}

// Upload stores the object
func (m *MockReceiptStorage) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf.Bytes()
	return objectPath, nil
}

// Delete removes the object
func (m *MockReceiptStorage) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[objectPath]; !ok {
		return errors.New("object not found")
	}
	delete(m.Objects, objectPath)
	return nil
}

// GeneratePresignedURL returns a fake signed URL
func (m *MockReceiptStorage) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://receipts.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// Paths returns the stored object paths, sorted
func (m *MockReceiptStorage) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.Objects))
	for p := range m.Objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
