package dto

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse answers a successful login. Credentials travel only in
// HTTP-only cookies; the body carries just what the client UI needs.
type LoginResponse struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// MessageResponse is the generic confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}
