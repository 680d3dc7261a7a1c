package issues

import (
	"errors"
	"fmt"
)

// ErrSearchFailed is returned when the search API answers with a
// non-2xx status.
var ErrSearchFailed = errors.New("error fetching issue via search")

// SearchError carries the status of a failed search response.
type SearchError struct {
	StatusCode int
	Query      string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%v (status %d)", ErrSearchFailed, e.StatusCode)
}

func (e *SearchError) Unwrap() error {
	return ErrSearchFailed
}
