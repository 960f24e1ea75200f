package services

import (
	"context"
	"fmt"

	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type PaymentService struct{}

func NewPaymentService() *PaymentService {
	return &PaymentService{}
}

// Checkout starts payment for an order and returns the hosted checkout URL.
func (s *PaymentService) Checkout(ctx context.Context, api Backend, orderID string) (*dto.CheckoutResponse, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	var resp dto.CheckoutResponse
	if err := api.PostJSON(ctx, "/payments/checkout", dto.CheckoutRequest{OrderID: orderID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to start checkout: %w", err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("checkout response carried no url")
	}
	return &resp, nil
}
