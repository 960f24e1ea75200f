package dto

type CreateBookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
}

type UpdateBookRequest struct {
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Description *string  `json:"description,omitempty"`
}

type PublishRequest struct {
	Status string `json:"status"`
}

type PlaceOrderRequest struct {
	BookID  string `json:"book_id"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type AddWishlistRequest struct {
	BookID string `json:"book_id"`
}

type CheckoutRequest struct {
	OrderID string `json:"order_id"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
}
