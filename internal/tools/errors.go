package tools

import (
	"errors"
	"fmt"
)

// ErrCityNotFound is returned when the geocoder has no match for a city.
var ErrCityNotFound = errors.New("city not found")

// BackendError reports an unreachable or non-2xx tool backend.
type BackendError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
