package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type OrderService struct{}

func NewOrderService() *OrderService {
	return &OrderService{}
}

func (s *OrderService) Place(ctx context.Context, api Backend, req dto.PlaceOrderRequest) (*models.Order, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	if req.BookID == "" || req.Phone == "" || req.Address == "" {
		return nil, fmt.Errorf("%w: book, phone and address are required", ErrInvalidInput)
	}

	var order models.Order
	if err := api.PostJSON(ctx, "/orders", req, &order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return &order, nil
}

// Mine returns the signed-in reader's orders.
func (s *OrderService) Mine(ctx context.Context, api Backend) ([]models.Order, error) {
	var orders []models.Order
	if err := api.GetJSON(ctx, "/orders/my", &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Cancel(ctx context.Context, api Backend, id string) error {
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if err := api.PatchJSON(ctx, "/orders/"+url.PathEscape(id)+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

// ForLibrarian returns orders for the signed-in librarian's books.
func (s *OrderService) ForLibrarian(ctx context.Context, api Backend) ([]models.Order, error) {
	var orders []models.Order
	if err := api.GetJSON(ctx, "/librarian/orders", &orders); err != nil {
		return nil, fmt.Errorf("failed to list librarian orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus asks the backend to move an order along. The backend decides
// whether the transition is allowed.
func (s *OrderService) UpdateStatus(ctx context.Context, api Backend, id, status string) error {
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	switch status {
	case models.OrderStatusPending, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}

	if err := api.PatchJSON(ctx, "/orders/"+url.PathEscape(id)+"/status", dto.UpdateOrderStatusRequest{Status: status}, nil); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}
