package testutil

import (
	"context"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/oauth"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Sync(ctx context.Context, api services.Backend, p *models.Principal) error {
	args := m.Called(ctx, api, p)
	return args.Error(0)
}

func (m *MockUserService) List(ctx context.Context, api services.Backend) ([]models.UserRecord, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserRecord), args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, api services.Backend, email string, role models.Role) error {
	args := m.Called(ctx, api, email, role)
	return args.Error(0)
}

// MockBookService mocks the BookService
type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) List(ctx context.Context, api services.Backend, q services.BookQuery) ([]models.Book, error) {
	args := m.Called(ctx, api, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) Get(ctx context.Context, api services.Backend, id string) (*models.Book, error) {
	args := m.Called(ctx, api, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) Create(ctx context.Context, api services.Backend, req dto.CreateBookRequest) (*models.Book, error) {
	args := m.Called(ctx, api, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) Update(ctx context.Context, api services.Backend, id string, req dto.UpdateBookRequest) (*models.Book, error) {
	args := m.Called(ctx, api, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) ListMine(ctx context.Context, api services.Backend) ([]models.Book, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) ListAll(ctx context.Context, api services.Backend) ([]models.Book, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) SetPublished(ctx context.Context, api services.Backend, id string, published bool) error {
	args := m.Called(ctx, api, id, published)
	return args.Error(0)
}

// MockOrderService mocks the OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Place(ctx context.Context, api services.Backend, req dto.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, api, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) Mine(ctx context.Context, api services.Backend) ([]models.Order, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, api services.Backend, id string) error {
	args := m.Called(ctx, api, id)
	return args.Error(0)
}

func (m *MockOrderService) ForLibrarian(ctx context.Context, api services.Backend) ([]models.Order, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, api services.Backend, id, status string) error {
	args := m.Called(ctx, api, id, status)
	return args.Error(0)
}

// MockWishlistService mocks the WishlistService
type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) List(ctx context.Context, api services.Backend) ([]models.WishlistItem, error) {
	args := m.Called(ctx, api)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WishlistItem), args.Error(1)
}

func (m *MockWishlistService) Add(ctx context.Context, api services.Backend, bookID string) error {
	args := m.Called(ctx, api, bookID)
	return args.Error(0)
}

func (m *MockWishlistService) Remove(ctx context.Context, api services.Backend, bookID string) error {
	args := m.Called(ctx, api, bookID)
	return args.Error(0)
}

// MockPaymentService mocks the PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Checkout(ctx context.Context, api services.Backend, orderID string) (*dto.CheckoutResponse, error) {
	args := m.Called(ctx, api, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CheckoutResponse), args.Error(1)
}

// MockOAuthProvider mocks a federated consent provider
type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) GetConsentURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Consent, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.Consent), args.Error(1)
}

func (m *MockOAuthProvider) Name() string {
	args := m.Called()
	return args.String(0)
}
