package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

func (h *HTTPHandler) listOrders(c *gin.Context) {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.orders.List(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", result)
}

func (h *HTTPHandler) createOrder(c *gin.Context) {
	var draft domain.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	order, err := h.orders.Create(c.Request.Context(), draft)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusCreated, "order created", order)
}

func (h *HTTPHandler) quoteOrder(c *gin.Context) {
	var req domain.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	quote, err := h.orders.Quote(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", quote)
}

func (h *HTTPHandler) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", order)
}

func (h *HTTPHandler) updateOrder(c *gin.Context) {
	var patch domain.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	order, err := h.orders.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "order updated", order)
}

func (h *HTTPHandler) deleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "order deleted", nil)
}

func (h *HTTPHandler) repriceOrder(c *gin.Context) {
	repricing, err := h.orders.Reprice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", repricing)
}
