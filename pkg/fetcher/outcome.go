package fetcher

import "fmt"

// Outcome represents the terminal state of a single fetch task.
// Exactly one of Body or Err is meaningful: Err == nil means success.
type Outcome struct {
	// URL is the target as it appeared in the request, unmodified.
	URL string

	// Body is the raw response body on success.
	Body string

	// Err is the fetch error on failure.
	Err error
}

// Result projects the outcome into the single string that goes into the
// aggregate response: the body on success, a self-describing error string
// on failure.
func (o Outcome) Result() string {
	if o.Err != nil {
		return fmt.Sprintf("Error fetching data from %s: %v", o.URL, o.Err)
	}
	return o.Body
}

// Failed reports whether the fetch ended in an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Results maps a slice of outcomes to their result strings, preserving order.
func Results(outcomes []Outcome) []string {
	results := make([]string, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.Result()
	}
	return results
}
