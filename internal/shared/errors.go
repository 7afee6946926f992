package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Remote catalog errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrConnection         = fmt.Errorf("remote connection failed")
	ErrHydration          = fmt.Errorf("remote attribute missing after hydration")
	ErrUnknownAttribute   = fmt.Errorf("unknown attribute")

	// Import errors
	ErrExhaustedRetries = fmt.Errorf("retries exhausted")
	ErrNoAnalysis       = fmt.Errorf("track has no audio analysis")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrValidation     = fmt.Errorf("validation failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
