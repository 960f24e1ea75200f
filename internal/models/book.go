package models

import "time"

// Order statuses as reported by the backend. Transitions are enacted there.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	BookStatusPublished   = "published"
	BookStatusUnpublished = "unpublished"
)

type Book struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Librarian   string    `json:"librarian_email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Order struct {
	ID            string    `json:"_id"`
	BookID        string    `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	CustomerEmail string    `json:"customer_email"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type WishlistItem struct {
	BookID   string    `json:"book_id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	ImageURL string    `json:"image_url,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// UserRecord is the backend's view of a user, as listed to admins.
type UserRecord struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
