package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type WishlistHandler struct {
	wishlistService WishlistServiceInterface
	loginPath       string
}

func NewWishlistHandler(wishlistService WishlistServiceInterface, loginPath string) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService, loginPath: loginPath}
}

func (h *WishlistHandler) List(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	items, err := h.wishlistService.List(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if items == nil {
		items = []models.WishlistItem{}
	}

	_ = c.JSON(http.StatusOK, items)
}

func (h *WishlistHandler) Add(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.AddWishlistRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.wishlistService.Add(c.Request.Context(), api, req.BookID); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusCreated, map[string]string{"book_id": req.BookID})
}

func (h *WishlistHandler) Remove(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), api, c.Param("bookId")); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, map[string]string{"message": "removed"})
}
