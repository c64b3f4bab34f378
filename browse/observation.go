// Package browse drives a Chromium browser for page fetching and
// interactive session recording.
package browse

// Observation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Observation is the simplified representation of a fetched page, or an
// error marker when the fetch failed. It is what the planner sees.
type Observation struct {
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessObservation wraps page content in a success observation.
func SuccessObservation(content string) Observation {
	return Observation{Status: StatusSuccess, Content: content}
}

// ErrorObservation wraps a failure message in an error observation.
func ErrorObservation(msg string) Observation {
	return Observation{Status: StatusError, Message: msg}
}

// IsError reports whether the observation is the error variant.
func (o Observation) IsError() bool { return o.Status == StatusError }

// Empty reports whether no observation has been made yet.
func (o Observation) Empty() bool { return o.Status == "" }

// Summary returns the human-readable payload of the observation.
func (o Observation) Summary() string {
	if o.IsError() {
		return "page fetch failed: " + o.Message
	}
	return o.Content
}
