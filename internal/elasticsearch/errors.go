package elasticsearch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidClusterNodes indicates a malformed cluster node list:
	// an entry without a port, or with a non-numeric port.
	ErrInvalidClusterNodes = errors.New("invalid cluster node list")

	// ErrClusterUnreachable indicates the liveness probe failed after
	// the connection was built.
	ErrClusterUnreachable = errors.New("elasticsearch cluster unreachable")

	// ErrVersionConflict indicates an optimistic-concurrency version
	// mismatch on a synchronous write. The caller decides whether to
	// re-read and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAmbiguousStatus indicates an existence check returned a status
	// other than 200 or 404. The state is unknown and must not be
	// coerced to a boolean.
	ErrAmbiguousStatus = errors.New("ambiguous status on existence check")
)

// AdminError is returned when an administrative call (index or template
// create/delete/exists, alias listing) gets a transport failure or an
// unexpected response from the cluster.
type AdminError struct {
	Op     string
	Name   string
	Status int
	Body   string
	Err    error
}

func (e *AdminError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Name, e.Status, e.Body)
}

func (e *AdminError) Unwrap() error {
	return e.Err
}
