package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Source errors
	ErrSourceMissing   = fmt.Errorf("source directory not found")
	ErrInvalidDocument = fmt.Errorf("invalid document")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limit exceeded")

	// Persistence errors
	ErrNotFound        = fmt.Errorf("record not found")
	ErrUniqueViolation = fmt.Errorf("uniqueness constraint violated")
	ErrSlugExhausted   = fmt.Errorf("no free slug found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
