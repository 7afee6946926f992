package services

import (
	"fmt"

	"github.com/desertthunder/crate/internal/shared"
)

// HydrationError reports a required attribute that was still absent after the resource was hydrated.
type HydrationError struct {
	Kind      Kind
	ID        string
	Attribute string
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("%s %q: attribute %q missing after hydration", e.Kind, e.ID, e.Attribute)
}

func (e *HydrationError) Is(target error) bool {
	return target == shared.ErrHydration
}

// ConnectionError reports a transport failure or a response the catalog asked us to retry.
type ConnectionError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("connection to %s failed: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Is(target error) bool {
	return target == shared.ErrConnection
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
