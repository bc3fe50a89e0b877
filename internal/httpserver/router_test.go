package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/service/checkout"
	"storefront/internal/session"
)

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 without db, got %d", rec.Code)
	}
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestSessionMiddleware_IssuesDeviceID(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, "")
	c.device = ""

	rec, _ := c.do(http.MethodGet, "/cart", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get(DeviceHeader) == "" {
		t.Fatalf("expected %s response header", DeviceHeader)
	}
}

func TestSessionMiddleware_RejectsBadDeviceAndToken(t *testing.T) {
	env := newTestEnv(t)

	c := env.client(t, "")
	c.device = "device-1"
	out := c.expect(http.StatusBadRequest, http.MethodGet, "/cart", nil)
	if out["field"] != "deviceId" {
		t.Fatalf("expected deviceId field error, got %v", out)
	}

	c = env.client(t, "")
	c.token = "Bearer not-a-jwt"
	c.expect(http.StatusUnauthorized, http.MethodGet, "/cart", nil)
}

func TestGuestIsRejectedFromAccountRoutes(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, "")

	for _, path := range []string{"/orders", "/addresses", "/wishlist", "/checkout"} {
		c.expect(http.StatusUnauthorized, http.MethodGet, path, nil)
	}
	c.expect(http.StatusUnauthorized, http.MethodPost, "/checkout", nil)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.Invalid("x", "bad"), http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrNotFound), http.StatusNotFound},
		{checkout.ErrInvalidTransition, http.StatusConflict},
		{checkout.ErrSubmitInFlight, http.StatusConflict},
		{session.ErrNoCheckout, http.StatusConflict},
		{domain.ErrLastAddress, http.StatusConflict},
		{functions.ErrUnavailable, http.StatusBadGateway},
		{&functions.StatusError{Function: "verify-payment", StatusCode: 400}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestErrorBody_HidesInternalErrors(t *testing.T) {
	body := errorBody(errors.New("pq: password authentication failed"), http.StatusInternalServerError)
	if body["error"] != "internal error" {
		t.Fatalf("expected generic message, got %v", body["error"])
	}
}
