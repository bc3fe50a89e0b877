package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/service/checkout"
)

type selectAddressRequest struct {
	AddressID string `json:"addressId" binding:"required"`
}

type paymentMethodRequest struct {
	Method domain.PaymentMethod `json:"method" binding:"required"`
}

type promoRequest struct {
	Code string `json:"code" binding:"required"`
}

type paymentResultRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

func (r paymentResultRequest) result() functions.PaymentResult {
	return functions.PaymentResult{
		GatewayOrderID:   r.GatewayOrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		Signature:        r.Signature,
	}
}

func (h *handlers) respondCheckout(c *gin.Context, v checkout.View, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Printf("http: %s %s status=%d error=%v", c.Request.Method, c.FullPath(), status, err)
		}
		body := errorBody(err, status)
		body["checkout"] = v
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, v)
}

// withCheckout runs fn against the session's checkout.
func (h *handlers) withCheckout(c *gin.Context, fn func(*checkout.Session) (checkout.View, error)) {
	s, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	co, err := s.Checkout()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	v, err := fn(co)
	h.respondCheckout(c, v, err)
}

func (h *handlers) startCheckout(c *gin.Context) {
	s, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	co, err := s.StartCheckout(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, co.View())
}

func (h *handlers) getCheckout(c *gin.Context) {
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.View(), nil
	})
}

func (h *handlers) selectAddress(c *gin.Context) {
	var req selectAddressRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.SelectAddress(c.Request.Context(), req.AddressID)
	})
}

func (h *handlers) checkServiceability(c *gin.Context) {
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.CheckServiceability(c.Request.Context())
	})
}

func (h *handlers) checkoutNext(c *gin.Context) {
	h.withCheckout(c, (*checkout.Session).Next)
}

func (h *handlers) checkoutBack(c *gin.Context) {
	h.withCheckout(c, (*checkout.Session).Back)
}

func (h *handlers) setPaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.SetPaymentMethod(req.Method)
	})
}

func (h *handlers) applyPromo(c *gin.Context) {
	var req promoRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.ApplyPromo(c.Request.Context(), req.Code)
	})
}

func (h *handlers) removePromo(c *gin.Context) {
	h.withCheckout(c, (*checkout.Session).RemovePromo)
}

func (h *handlers) submitCheckout(c *gin.Context) {
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		// Placement continues if the client goes away mid-request.
		return co.Submit(context.WithoutCancel(c.Request.Context()))
	})
}

func (h *handlers) checkoutPaymentSucceeded(c *gin.Context) {
	var req paymentResultRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	h.withCheckout(c, func(co *checkout.Session) (checkout.View, error) {
		return co.PaymentSucceeded(context.WithoutCancel(c.Request.Context()), req.result())
	})
}

func (h *handlers) checkoutPaymentDismissed(c *gin.Context) {
	h.withCheckout(c, (*checkout.Session).PaymentDismissed)
}
