package dto

type ConsentURLResponse struct {
	URL string `json:"url"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photo_url,omitempty"`
	Next     string `json:"next,omitempty"`
}

// AuthResponse is returned by every sign-in flow. Redirect is where the
// browser should go next.
type AuthResponse struct {
	User     *UserResponse `json:"user"`
	Redirect string        `json:"redirect"`
}

// AuthErrorResponse carries the translated identity error.
type AuthErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// UnauthorizedResponse is sent when the backend rejected the session token.
type UnauthorizedResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}
