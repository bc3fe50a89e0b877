package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

type returnRequest struct {
	RequestType domain.ReturnType `json:"requestType" binding:"required"`
	Reason      string            `json:"reason"`
}

func (h *handlers) listOrders(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	list, err := h.deps.Orders.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *handlers) getOrder(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	o, err := h.deps.Orders.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":            o,
		"canRetryPayment":  o.CanRetryPayment(),
		"canRequestReturn": o.CanRequestReturn(),
	})
}

func (h *handlers) retryPayment(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	po, err := h.deps.Orders.RetryPayment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *handlers) confirmRetry(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	var req paymentResultRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.deps.Orders.ConfirmRetry(c.Request.Context(), userID, c.Param("id"), req.result()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) requestReturn(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	var req returnRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.deps.Orders.RequestReturn(c.Request.Context(), userID, c.Param("id"), req.RequestType, req.Reason); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}
