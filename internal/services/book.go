package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type BookQuery struct {
	Search string
	Sort   string
	Page   int
	Limit  int
}

func (q BookQuery) encode() string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type BookService struct{}

func NewBookService() *BookService {
	return &BookService{}
}

// List returns published books. It needs no sign-in.
func (s *BookService) List(ctx context.Context, api Backend, q BookQuery) ([]models.Book, error) {
	var books []models.Book
	if err := api.DoPublic(ctx, http.MethodGet, "/books"+q.encode(), nil, &books); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (s *BookService) Get(ctx context.Context, api Backend, id string) (*models.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	var book models.Book
	if err := api.DoPublic(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, &book); err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// Create adds a book as the signed-in librarian.
func (s *BookService) Create(ctx context.Context, api Backend, req dto.CreateBookRequest) (*models.Book, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		return nil, fmt.Errorf("%w: title and author are required", ErrInvalidInput)
	}
	if req.Price < 0 || req.Quantity < 0 {
		return nil, fmt.Errorf("%w: price and quantity must not be negative", ErrInvalidInput)
	}
	if req.Status == "" {
		req.Status = models.BookStatusUnpublished
	}
	if err := validBookStatus(req.Status); err != nil {
		return nil, err
	}

	var book models.Book
	if err := api.PostJSON(ctx, "/books", req, &book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &book, nil
}

func (s *BookService) Update(ctx context.Context, api Backend, id string, req dto.UpdateBookRequest) (*models.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	if (req.Price != nil && *req.Price < 0) || (req.Quantity != nil && *req.Quantity < 0) {
		return nil, fmt.Errorf("%w: price and quantity must not be negative", ErrInvalidInput)
	}
	if req.Status != nil {
		if err := validBookStatus(*req.Status); err != nil {
			return nil, err
		}
	}

	var book models.Book
	if err := api.PatchJSON(ctx, "/books/"+url.PathEscape(id), req, &book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return &book, nil
}

// ListMine returns the books added by the signed-in librarian.
func (s *BookService) ListMine(ctx context.Context, api Backend) ([]models.Book, error) {
	var books []models.Book
	if err := api.GetJSON(ctx, "/librarian/books", &books); err != nil {
		return nil, fmt.Errorf("failed to list librarian books: %w", err)
	}
	return books, nil
}

// ListAll returns every book, published or not. Admin only.
func (s *BookService) ListAll(ctx context.Context, api Backend) ([]models.Book, error) {
	var books []models.Book
	if err := api.GetJSON(ctx, "/admin/books", &books); err != nil {
		return nil, fmt.Errorf("failed to list all books: %w", err)
	}
	return books, nil
}

// SetPublished publishes or unpublishes a book. Admin only.
func (s *BookService) SetPublished(ctx context.Context, api Backend, id string, published bool) error {
	if id == "" {
		return fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}
	status := models.BookStatusUnpublished
	if published {
		status = models.BookStatusPublished
	}
	if err := api.PatchJSON(ctx, "/admin/books/"+url.PathEscape(id)+"/publish", dto.PublishRequest{Status: status}, nil); err != nil {
		return fmt.Errorf("failed to change book status: %w", err)
	}
	return nil
}

func validBookStatus(status string) error {
	switch status {
	case models.BookStatusPublished, models.BookStatusUnpublished:
		return nil
	default:
		return fmt.Errorf("%w: unknown book status %q", ErrInvalidInput, status)
	}
}
