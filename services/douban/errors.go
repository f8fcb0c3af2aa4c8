package douban

import "fmt"

// ValidationError reports a bad caller parameter. It is returned
// synchronously, before any network call is made.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TransportError reports a failed upstream exchange: either the remote
// answered with an unexpected status, or the request itself failed
// (connection error, timeout). For timeouts the wrapped cause satisfies
// errors.Is(err, context.DeadlineExceeded).
type TransportError struct {
	URL    string
	Status int   // set when the remote answered with a non-OK status
	Err    error // set for network-level failures
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("douban: GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("douban: GET %s: unexpected status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
