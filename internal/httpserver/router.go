package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/service/address"
	"storefront/internal/session"
)

type SessionResolver interface {
	Resolve(ctx context.Context, deviceID, bearer string) (*session.Session, error)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	SubmitReview(ctx context.Context, userID string, productID int64, rating int, comment string) (string, error)
}

type AddressService interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, in address.Input) (*domain.Address, error)
	Delete(ctx context.Context, userID, id, reassignTo string) error
	SetDefault(ctx context.Context, userID, id string) error
}

type OrderService interface {
	List(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)
	RetryPayment(ctx context.Context, userID, orderID string) (functions.PaymentOrder, error)
	ConfirmRetry(ctx context.Context, userID, orderID string, res functions.PaymentResult) error
	RequestReturn(ctx context.Context, userID, orderID string, kind domain.ReturnType, reason string) error
}

type Deps struct {
	Sessions    SessionResolver
	Products    ProductService
	Addresses   AddressService
	Orders      OrderService
	Redis       *redis.Client
	CORSOrigins []string
	// StreamHeartbeat is the interval of keep-alive events on the cart stream.
	StreamHeartbeat time.Duration
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Products == nil || deps.Addresses == nil || deps.Orders == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	if deps.StreamHeartbeat <= 0 {
		deps.StreamHeartbeat = 25 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Redis))

	h := &handlers{deps: deps, logger: logger}
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	api := router.Group("/", sessionMiddleware(deps.Sessions, logger))
	api.POST("/products/:id/reviews", h.submitReview)

	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addCartItem)
	api.PATCH("/cart/items/:productId", h.updateCartItem)
	api.DELETE("/cart/items/:productId", h.removeCartItem)
	api.DELETE("/cart", h.clearCart)
	api.GET("/cart/stream", h.streamCart)

	api.POST("/checkout", h.startCheckout)
	api.GET("/checkout", h.getCheckout)
	api.POST("/checkout/address", h.selectAddress)
	api.POST("/checkout/serviceability", h.checkServiceability)
	api.POST("/checkout/next", h.checkoutNext)
	api.POST("/checkout/back", h.checkoutBack)
	api.POST("/checkout/payment-method", h.setPaymentMethod)
	api.POST("/checkout/promo", h.applyPromo)
	api.DELETE("/checkout/promo", h.removePromo)
	api.POST("/checkout/submit", h.submitCheckout)
	api.POST("/checkout/payment/success", h.checkoutPaymentSucceeded)
	api.POST("/checkout/payment/dismiss", h.checkoutPaymentDismissed)

	api.GET("/addresses", h.listAddresses)
	api.POST("/addresses", h.createAddress)
	api.DELETE("/addresses/:id", h.deleteAddress)
	api.POST("/addresses/:id/default", h.setDefaultAddress)

	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)
	api.POST("/orders/:id/retry-payment", h.retryPayment)
	api.POST("/orders/:id/payment/success", h.confirmRetry)
	api.POST("/orders/:id/return-request", h.requestReturn)

	api.GET("/wishlist", h.getWishlist)
	api.PUT("/wishlist/:productId", h.addToWishlist)
	api.DELETE("/wishlist/:productId", h.removeFromWishlist)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", DeviceHeader)
	cfg.ExposeHeaders = []string{DeviceHeader}
	return cfg
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
