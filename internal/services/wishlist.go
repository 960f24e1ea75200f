package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type WishlistService struct{}

func NewWishlistService() *WishlistService {
	return &WishlistService{}
}

func (s *WishlistService) List(ctx context.Context, api Backend) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := api.GetJSON(ctx, "/wishlist", &items); err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	return items, nil
}

func (s *WishlistService) Add(ctx context.Context, api Backend, bookID string) error {
	if bookID == "" {
		return fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	if err := api.PostJSON(ctx, "/wishlist", dto.AddWishlistRequest{BookID: bookID}, nil); err != nil {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return nil
}

func (s *WishlistService) Remove(ctx context.Context, api Backend, bookID string) error {
	if bookID == "" {
		return fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	if err := api.DeleteJSON(ctx, "/wishlist/"+url.PathEscape(bookID), nil); err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return nil
}
