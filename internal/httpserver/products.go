package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (h *handlers) listProducts(c *gin.Context) {
	list, err := h.deps.Products.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := int64Param(c, h.logger, "id")
	if !ok {
		return
	}
	p, err := h.deps.Products.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) submitReview(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	id, ok := int64Param(c, h.logger, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	reviewID, err := h.deps.Products.SubmitReview(c.Request.Context(), userID, id, req.Rating, req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": reviewID})
}
