package handlers

import (
	"context"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Sync(ctx context.Context, api services.Backend, p *models.Principal) error
	List(ctx context.Context, api services.Backend) ([]models.UserRecord, error)
	SetRole(ctx context.Context, api services.Backend, email string, role models.Role) error
}

// BookServiceInterface defines the methods used by handlers from BookService
type BookServiceInterface interface {
	List(ctx context.Context, api services.Backend, q services.BookQuery) ([]models.Book, error)
	Get(ctx context.Context, api services.Backend, id string) (*models.Book, error)
	Create(ctx context.Context, api services.Backend, req dto.CreateBookRequest) (*models.Book, error)
	Update(ctx context.Context, api services.Backend, id string, req dto.UpdateBookRequest) (*models.Book, error)
	ListMine(ctx context.Context, api services.Backend) ([]models.Book, error)
	ListAll(ctx context.Context, api services.Backend) ([]models.Book, error)
	SetPublished(ctx context.Context, api services.Backend, id string, published bool) error
}

// OrderServiceInterface defines the methods used by handlers from OrderService
type OrderServiceInterface interface {
	Place(ctx context.Context, api services.Backend, req dto.PlaceOrderRequest) (*models.Order, error)
	Mine(ctx context.Context, api services.Backend) ([]models.Order, error)
	Cancel(ctx context.Context, api services.Backend, id string) error
	ForLibrarian(ctx context.Context, api services.Backend) ([]models.Order, error)
	UpdateStatus(ctx context.Context, api services.Backend, id, status string) error
}

// WishlistServiceInterface defines the methods used by handlers from WishlistService
type WishlistServiceInterface interface {
	List(ctx context.Context, api services.Backend) ([]models.WishlistItem, error)
	Add(ctx context.Context, api services.Backend, bookID string) error
	Remove(ctx context.Context, api services.Backend, bookID string) error
}

// PaymentServiceInterface defines the methods used by handlers from PaymentService
type PaymentServiceInterface interface {
	Checkout(ctx context.Context, api services.Backend, orderID string) (*dto.CheckoutResponse, error)
}

var (
	_ UserServiceInterface     = (*services.UserService)(nil)
	_ BookServiceInterface     = (*services.BookService)(nil)
	_ OrderServiceInterface    = (*services.OrderService)(nil)
	_ WishlistServiceInterface = (*services.WishlistService)(nil)
	_ PaymentServiceInterface  = (*services.PaymentService)(nil)
)
