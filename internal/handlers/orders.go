package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type OrderHandler struct {
	orderService   OrderServiceInterface
	paymentService PaymentServiceInterface
	loginPath      string
}

func NewOrderHandler(orderService OrderServiceInterface, paymentService PaymentServiceInterface, loginPath string) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
		loginPath:      loginPath,
	}
}

func (h *OrderHandler) Place(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.PlaceOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	order, err := h.orderService.Place(c.Request.Context(), api, req)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Mine(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	orders, err := h.orderService.Mine(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	_ = c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Cancel(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	if err := h.orderService.Cancel(c.Request.Context(), api, c.Param("id")); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, map[string]string{"status": models.OrderStatusCancelled})
}

// Incoming lists orders for the calling librarian's books.
func (h *OrderHandler) Incoming(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ForLibrarian(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	_ = c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.orderService.UpdateStatus(c.Request.Context(), api, c.Param("id"), req.Status); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}

func (h *OrderHandler) Checkout(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	resp, err := h.paymentService.Checkout(c.Request.Context(), api, req.OrderID)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, resp)
}
