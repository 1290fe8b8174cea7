package handlers

const (
	ErrUnauthorized        = "authentication required"
	ErrAdminRequired       = "administrator access required"
	ErrInvalidCSRFToken    = "invalid CSRF token"
	ErrTooManyRequests     = "too many requests, try again later"
	ErrInternalServerError = "Internal server error"
)
