package handlers

import (
	"net/http"
	"strconv"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type BookHandler struct {
	bookService BookServiceInterface
	loginPath   string
}

func NewBookHandler(bookService BookServiceInterface, loginPath string) *BookHandler {
	return &BookHandler{bookService: bookService, loginPath: loginPath}
}

// List is public: anyone may browse the catalog.
func (h *BookHandler) List(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	books, err := h.bookService.List(c.Request.Context(), api, services.BookQuery{
		Search: c.QueryParam("search"),
		Sort:   c.QueryParam("sort"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	_ = c.JSON(http.StatusOK, books)
}

func (h *BookHandler) Get(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	book, err := h.bookService.Get(c.Request.Context(), api, c.Param("id"))
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Create(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.CreateBookRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	book, err := h.bookService.Create(c.Request.Context(), api, req)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Update(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.UpdateBookRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	book, err := h.bookService.Update(c.Request.Context(), api, c.Param("id"), req)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, book)
}

// Mine lists the calling librarian's books, published or not.
func (h *BookHandler) Mine(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	books, err := h.bookService.ListMine(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	_ = c.JSON(http.StatusOK, books)
}

func (h *BookHandler) All(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	books, err := h.bookService.ListAll(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	_ = c.JSON(http.StatusOK, books)
}

func (h *BookHandler) Publish(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.PublishRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	var published bool
	switch req.Status {
	case models.BookStatusPublished:
		published = true
	case models.BookStatusUnpublished:
	default:
		c.BadRequest("status must be published or unpublished")
		return
	}

	if err := h.bookService.SetPublished(c.Request.Context(), api, c.Param("id"), published); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}
