package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/dancecoin-ledger/internal/api_gateway/service"
	"github.com/dancecoin-ledger/internal/coin_ledger/components"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/data/memory"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockPurchaseService is a mock implementation of service.PurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) SubmitPurchase(ctx context.Context, request *shared.PurchaseRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type testEnv struct {
	router    *gin.Engine
	ledger    *coinledger.CoinLedgerService
	txRunner  *memory.TxRunner
	clock     *testClock
	purchases *MockPurchaseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := newTestLogger()

	txRunner := memory.NewTxRunner(memory.NewStore(logger))
	calculator, err := pricing.NewCalculator(50, 5)
	require.NoError(t, err)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)}
	ledgerService := coinledger.NewCoinLedgerService(
		txRunner,
		components.NewWalletManager(logger),
		components.NewOutboxManager(logger),
		calculator,
		coinledger.Settings{DailyBonus: 5, Location: berlin, StoreTimeout: time.Second},
		nil,
		logger,
	).WithClock(clock.Now)

	reconciler, err := coinledger.NewReconciler(txRunner, ledgerService, 2, logger)
	require.NoError(t, err)
	t.Cleanup(reconciler.Shutdown)

	purchases := &MockPurchaseService{}
	wallets := NewWalletHandler(logger, ledgerService, service.NewActivityService(logger, nil, ledgerService))
	commerce := NewCommerceHandler(logger, ledgerService, purchases)
	admin := NewAdminHandler(logger, ledgerService, reconciler)

	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.Actor())
	v1 := r.Group("/api/v1")
	own := v1.Group("/wallets/:accountId", middleware.RequireAccountOwner("accountId"))
	own.GET("", wallets.Get)
	own.GET("/entries", wallets.Entries)
	own.GET("/activity", wallets.Activity)
	own.POST("/daily-bonus", wallets.ClaimDailyBonus)
	own.POST("/charges", wallets.Charge)
	own.POST("/redemptions", wallets.Redeem)
	v1.GET("/pricing/quote", commerce.Quote)
	v1.POST("/sales", commerce.RecordSale)
	v1.POST("/purchases", middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin), commerce.PurchaseCallback)
	adm := v1.Group("/admin", middleware.RequireAdmin())
	adm.POST("/wallets/:accountId/adjustments", admin.Adjust)
	adm.POST("/wallets/:accountId/awards", admin.Award)
	adm.POST("/wallets/:accountId/recompute", admin.Recompute)
	adm.POST("/wallets/:accountId/refunds", wallets.Refund)
	adm.POST("/reconcile", admin.Reconcile)
	adm.POST("/keys", admin.CreateKey)
	adm.GET("/keys", admin.ListKeys)
	adm.PUT("/commissions", admin.SetCommission)
	adm.PATCH("/commissions/:id", admin.SetCommissionActive)
	adm.GET("/courses/:courseId/commissions", admin.ListCommissions)

	return &testEnv{router: r, ledger: ledgerService, txRunner: txRunner, clock: clock, purchases: purchases}
}

var keySeq atomic.Int64

func nextKey() string {
	return fmt.Sprintf("http-key-%d", keySeq.Add(1))
}

func (e *testEnv) fund(t *testing.T, accountID string, amount int64) {
	t.Helper()
	_, err := e.ledger.AdminAdjust(context.Background(), coinledger.AdjustRequest{
		AccountID:      accountID,
		Delta:          amount,
		Note:           "test funding",
		ActorID:        "admin-1",
		IdempotencyKey: nextKey(),
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	w, err := e.ledger.GetWallet(context.Background(), accountID)
	require.NoError(t, err)
	return w.Balance
}

type requestOption func(*http.Request)

func asUser(id string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.ActorIDHeader, id) }
}

func asAdmin() requestOption {
	return func(r *http.Request) {
		r.Header.Set(middleware.ActorIDHeader, "admin-1")
		r.Header.Set(middleware.ActorRoleHeader, middleware.RoleAdmin)
	}
}

func asService() requestOption {
	return func(r *http.Request) {
		r.Header.Set(middleware.ActorIDHeader, "storekit-bridge")
		r.Header.Set(middleware.ActorRoleHeader, middleware.RoleService)
	}
}

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) { r.Header.Set(IdempotencyKeyHeader, key) }
}

// apiResponse mirrors Response with raw data for per-test decoding
type apiResponse struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *MetaInfo       `json:"meta"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewBuffer(payload)
		}
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return rr.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
