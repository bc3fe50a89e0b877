package httpserver

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"storefront/internal/service/cart"
)

type addItemRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).Cart.Snapshot())
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	p, err := h.deps.Products.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionFrom(c).Cart.AddItem(c.Request.Context(), *p, req.Quantity))
}

func (h *handlers) updateCartItem(c *gin.Context) {
	id, ok := int64Param(c, h.logger, "productId")
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	c.JSON(http.StatusOK, sessionFrom(c).Cart.UpdateQuantity(c.Request.Context(), id, *req.Quantity))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	id, ok := int64Param(c, h.logger, "productId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionFrom(c).Cart.RemoveItem(c.Request.Context(), id))
}

func (h *handlers) clearCart(c *gin.Context) {
	s := sessionFrom(c)
	if err := s.Cart.Clear(c.Request.Context()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Cart.Snapshot())
}

// streamCart pushes a "cart" event with the full snapshot on every change,
// starting with the current one.
func (h *handlers) streamCart(c *gin.Context) {
	s := sessionFrom(c)
	updates := make(chan cart.Snapshot, 1)
	stop := s.Watch(func(snap cart.Snapshot) {
		// Keep only the newest snapshot for a slow reader.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", s.Cart.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.deps.StreamHeartbeat)
	defer heartbeat.Stop()
	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			c.SSEvent("cart", snap)
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
		}
		return true
	})
}
