package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Session errors. Each one maps to its own 401 response body.
	ErrAuth         = fmt.Errorf("authentication failed")
	ErrTokenExpired = fmt.Errorf("%w: token has expired", ErrAuth)
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrAuth)
	ErrTokenMissing = fmt.Errorf("%w: missing authorization token", ErrAuth)
	ErrTokenRevoked = fmt.Errorf("%w: token has been revoked", ErrAuth)

	// Upstream service errors
	ErrUpstreamFormat      = fmt.Errorf("upstream returned unparsable content")
	ErrUpstreamUnavailable = fmt.Errorf("upstream service unavailable")

	// Persistence errors
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("already exists")

	ErrUsernameTaken = fmt.Errorf("username %w", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email %w", ErrConflict)
)
