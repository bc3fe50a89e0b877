package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getWishlist(c *gin.Context) {
	s, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	ids, err := s.Wishlist().IDs(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productIds": ids})
}

func (h *handlers) addToWishlist(c *gin.Context) {
	h.editWishlist(c, true)
}

func (h *handlers) removeFromWishlist(c *gin.Context) {
	h.editWishlist(c, false)
}

func (h *handlers) editWishlist(c *gin.Context, add bool) {
	s, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	id, ok := int64Param(c, h.logger, "productId")
	if !ok {
		return
	}
	w := s.Wishlist()
	var err error
	if add {
		err = w.Add(c.Request.Context(), id)
	} else {
		err = w.Remove(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
