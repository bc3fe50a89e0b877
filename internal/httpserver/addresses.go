package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/service/address"
)

func (h *handlers) listAddresses(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	list, err := h.deps.Addresses.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": list})
}

func (h *handlers) createAddress(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	var in address.Input
	if !bindJSON(c, h.logger, &in) {
		return
	}
	created, err := h.deps.Addresses.Create(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) deleteAddress(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	if err := h.deps.Addresses.Delete(c.Request.Context(), userID, c.Param("id"), c.Query("reassignTo")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setDefaultAddress(c *gin.Context) {
	_, userID := h.requireUser(c)
	if userID == "" {
		return
	}
	if err := h.deps.Addresses.SetDefault(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
