package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ordersvc "github.com/rcmarket/marketplace/internal/service/order"
)

func (h *handler) placeOrder(c *gin.Context) {
	var req ordersvc.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	o, err := h.deps.OrderSvc.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *handler) listOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": orders})
}

func (h *handler) getOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
