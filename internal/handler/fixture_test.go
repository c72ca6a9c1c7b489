package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/middleware"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/dafibh/kitty/kitty-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// subjectValidator accepts any token and uses it as the subject
type subjectValidator struct{}

func (subjectValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: token},
	}, nil
}

// apiFixture serves the full route table over in-memory repositories. The
// bearer token is the member's auth subject.
type apiFixture struct {
	e             *echo.Echo
	members       *testutil.MockMemberRepository
	periods       *testutil.MockPeriodRepository
	payments      *testutil.MockPaymentRepository
	loans         *testutil.MockLoanRepository
	repayments    *testutil.MockLoanRepaymentRepository
	notifications *testutil.MockNotificationRepository
	storage       *testutil.MockReceiptStorage
	group         *domain.Group
	admin         *domain.Member
	alice         *domain.Member
	bob           *domain.Member
	outsider      *domain.Member
}

func newAPIFixture(t *testing.T) *apiFixture {
	return newAPIFixtureWithStorage(t, true)
}

func newAPIFixtureWithStorage(t *testing.T, withStorage bool) *apiFixture {
	t.Helper()

	tx := testutil.NewMockTransactor()
	groups := testutil.NewMockGroupRepository()
	f := &apiFixture{
		members:       testutil.NewMockMemberRepository(),
		payments:      testutil.NewMockPaymentRepository(),
		loans:         testutil.NewMockLoanRepository(),
		repayments:    testutil.NewMockLoanRepaymentRepository(),
		notifications: testutil.NewMockNotificationRepository(),
	}
	f.periods = testutil.NewMockPeriodRepository(f.payments)
	events := testutil.NewMockPaymentEventRepository()

	f.group = groups.AddGroup("Family Kitty")
	other := groups.AddGroup("Office Kitty")
	f.admin = f.members.AddMember(f.group.ID, "admin", domain.MemberRoleAdmin)
	f.alice = f.members.AddMember(f.group.ID, "alice", domain.MemberRoleMember)
	f.bob = f.members.AddMember(f.group.ID, "bob", domain.MemberRoleMember)
	f.outsider = f.members.AddMember(other.ID, "mallory", domain.MemberRoleAdmin)

	notificationSvc := service.NewNotificationService(f.notifications)
	memberSvc := service.NewMemberService(f.members)
	periodSvc := service.NewPeriodService(tx, groups, f.members, f.periods, f.payments)
	paymentSvc := service.NewPaymentService(tx, f.members, f.periods, f.payments, events, notificationSvc)
	loanSvc := service.NewLoanService(tx, groups, f.members, f.loans, f.repayments, notificationSvc)

	var receiptSvc *service.ReceiptService
	if withStorage {
		f.storage = testutil.NewMockReceiptStorage()
		receiptSvc = service.NewReceiptService(f.storage, paymentSvc)
	} else {
		receiptSvc = service.NewReceiptService(nil, paymentSvc)
	}

	paymentHandler := NewPaymentHandler(paymentSvc, periodSvc)
	f.e = echo.New()
	f.e.Validator = NewRequestValidator()
	RegisterRoutes(f.e, middleware.NewAuthMiddlewareWithValidator(subjectValidator{}, memberSvc), nil, Handlers{
		Period:       NewPeriodHandler(periodSvc),
		Payment:      paymentHandler,
		Receipt:      NewReceiptHandler(receiptSvc, paymentHandler),
		Loan:         NewLoanHandler(loanSvc),
		Notification: NewNotificationHandler(notificationSvc),
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, as *domain.Member, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+as.AuthSubject)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// openPeriod adds March 2025 with 500 per member
func (f *apiFixture) openPeriod() *domain.ContributionPeriod {
	return f.periods.AddPeriod(f.group.ID, 2025, 3, decimal.NewFromInt(500), decimal.NewFromInt(1500))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	p := decode[ProblemDetails](t, rec)
	require.Equal(t, rec.Code, p.Status)
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
