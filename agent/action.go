// Package agent implements the planner step and the bounded browsing loop.
package agent

// ActionKind discriminates the planner's possible decisions.
type ActionKind string

const (
	// ActionFetch navigates to a URL and observes the resulting page.
	ActionFetch ActionKind = "fetch"
	// ActionFinish ends the loop with a reason.
	ActionFinish ActionKind = "finish"
)

// Action is the planner's decision for one loop iteration: either fetch a
// URL or finish with a reason. There are no other kinds.
type Action struct {
	Kind   ActionKind `json:"kind"`
	URL    string     `json:"url,omitempty"`    // set for fetch
	Reason string     `json:"reason,omitempty"` // set for finish
}

// Fetch builds a fetch action.
func Fetch(url string) Action { return Action{Kind: ActionFetch, URL: url} }

// Finish builds a finish action.
func Finish(reason string) Action { return Action{Kind: ActionFinish, Reason: reason} }
