package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"storefront/internal/auth"
	"storefront/internal/changefeed"
	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/localstore"
	"storefront/internal/repository/order"
	"storefront/internal/service/address"
	"storefront/internal/service/checkout"
	"storefront/internal/session"
)

const testSecret = "http-test-secret"

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type memoryCarts struct {
	mu    sync.Mutex
	ids   map[string]string
	items map[string][]domain.CartItem
	feed  *changefeed.Memory
}

func (m *memoryCarts) GetOrCreateCartID(_ context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[ownerID]; ok {
		return id, nil
	}
	m.ids[ownerID] = uuid.NewString()
	return m.ids[ownerID], nil
}

func (m *memoryCarts) LoadItems(_ context.Context, cartID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneItems(m.items[cartID]), nil
}

func (m *memoryCarts) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	m.mu.Lock()
	m.items[cartID] = domain.CloneItems(items)
	m.mu.Unlock()
	return m.feed.Publish(ctx, cartID)
}

func (m *memoryCarts) Subscribe(ctx context.Context, cartID string) (changefeed.Subscription, error) {
	return m.feed.Subscribe(ctx, cartID)
}

type stubProducts struct{}

func (stubProducts) List(context.Context) ([]domain.Product, error) {
	return []domain.Product{lamp}, nil
}

func (stubProducts) Get(_ context.Context, id int64) (*domain.Product, error) {
	if id != lamp.ID {
		return nil, domain.ErrNotFound
	}
	p := lamp
	return &p, nil
}

func (stubProducts) SubmitReview(_ context.Context, _ string, _ int64, rating int, _ string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", domain.Invalid("rating", "must be between 1 and 5")
	}
	return "review-1", nil
}

var lamp = domain.Product{ID: 1, Title: "Lamp", Price: decimal.NewFromInt(1200), Currency: "INR", IsActive: true}

type stubAddresses struct{}

var home = domain.Address{ID: "home", UserID: "user-1", FullName: "Asha Rao", PostalCode: "560001", IsDefault: true, IsActive: true}

func (stubAddresses) List(context.Context, string) ([]domain.Address, error) {
	return []domain.Address{home}, nil
}

func (stubAddresses) ListActive(context.Context, string) ([]domain.Address, error) {
	return []domain.Address{home}, nil
}

func (stubAddresses) Get(_ context.Context, _, id string) (*domain.Address, error) {
	if id != home.ID {
		return nil, domain.ErrNotFound
	}
	a := home
	return &a, nil
}

func (stubAddresses) Create(_ context.Context, userID string, in address.Input) (*domain.Address, error) {
	if in.PostalCode == "" {
		return nil, domain.Invalid("postalCode", "is required")
	}
	return &domain.Address{ID: "new", UserID: userID, FullName: in.FullName, PostalCode: in.PostalCode, IsActive: true}, nil
}

func (stubAddresses) Delete(context.Context, string, string, string) error {
	return domain.ErrLastAddress
}

func (stubAddresses) SetDefault(context.Context, string, string) error { return nil }

type stubOrders struct {
	mu      sync.Mutex
	created int
}

func (s *stubOrders) Create(context.Context, order.CreateInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return "order-1", nil
}

func (s *stubOrders) SetTrackingNumber(context.Context, string, string) error { return nil }

func (s *stubOrders) FindPromo(context.Context, string) (*domain.PromoCode, error) {
	return nil, domain.ErrNotFound
}

func (s *stubOrders) List(context.Context, string) ([]domain.Order, error) { return nil, nil }

func (s *stubOrders) Get(_ context.Context, _, id string) (*domain.Order, error) {
	return nil, domain.ErrNotFound
}

func (s *stubOrders) RetryPayment(context.Context, string, string) (functions.PaymentOrder, error) {
	return functions.PaymentOrder{}, domain.ErrNotEligible
}

func (s *stubOrders) ConfirmRetry(context.Context, string, string, functions.PaymentResult) error {
	return domain.ErrNotEligible
}

func (s *stubOrders) RequestReturn(context.Context, string, string, domain.ReturnType, string) error {
	return domain.ErrNotEligible
}

type stubGateway struct{}

func (stubGateway) CheckServiceability(context.Context, string) (bool, error) { return true, nil }

func (stubGateway) CreatePaymentOrder(_ context.Context, orderID string) (functions.PaymentOrder, error) {
	return functions.PaymentOrder{GatewayOrderID: "gw_" + orderID}, nil
}

func (stubGateway) VerifyPayment(context.Context, string, functions.PaymentResult) error { return nil }

func (stubGateway) CreateShipment(context.Context, functions.ShipmentRequest) (string, error) {
	return "WB1", nil
}

type noWishlist struct{}

func (noWishlist) List(context.Context, string) ([]int64, error) { return []int64{}, nil }
func (noWishlist) Add(context.Context, string, int64) error       { return nil }
func (noWishlist) Remove(context.Context, string, int64) error    { return nil }

type testEnv struct {
	router *gin.Engine
	orders *stubOrders
	carts  *memoryCarts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		orders: &stubOrders{},
		carts:  &memoryCarts{ids: map[string]string{}, items: map[string][]domain.CartItem{}, feed: changefeed.NewMemory()},
	}
	locals := map[string]localstore.Adapter{}
	var mu sync.Mutex
	sessions := session.NewManager(session.Deps{
		Local: func(deviceID string) localstore.Adapter {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := locals[deviceID]; !ok {
				locals[deviceID] = localstore.NewMemory()
			}
			return locals[deviceID]
		},
		Carts:     env.carts,
		Wishlists: noWishlist{},
		Checkout: checkout.Deps{
			Orders:    env.orders,
			Addresses: stubAddresses{},
			Gateway:   stubGateway{},
		},
		Verifier: auth.NewVerifier(testSecret, ""),
		Debounce: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = sessions.Close(context.Background()) })

	router, err := buildRouter(logDiscard(), nil, Deps{
		Sessions:        sessions,
		Products:        stubProducts{},
		Addresses:       stubAddresses{},
		Orders:          env.orders,
		StreamHeartbeat: time.Second,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	env.router = router
	return env
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, "", userID, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok
}

type client struct {
	t      *testing.T
	env    *testEnv
	device string
	token  string
}

func (e *testEnv) client(t *testing.T, userID string) *client {
	c := &client{t: t, env: e, device: uuid.NewString()}
	if userID != "" {
		c.token = bearer(t, userID)
	}
	return c
}

func (c *client) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.device != "" {
		req.Header.Set(DeviceHeader, c.device)
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	rec := httptest.NewRecorder()
	c.env.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (c *client) expect(status int, method, path string, body any) map[string]any {
	c.t.Helper()
	rec, out := c.do(method, path, body)
	if rec.Code != status {
		c.t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, status, rec.Code, rec.Body.String())
	}
	return out
}
