package domain

import "strings"

// NumberNotAssigned is the sentinel the dashboard shows while no agent
// number exists in either source of truth.
const NumberNotAssigned = "Not assigned yet"

// ============================================================
// Agent-number resolution
// ============================================================

// Two sources of truth exist for "does this user have a number": the profile
// row (agent_number/has_agent_number) and a CRM custom field keyed by email.
// The profile wins outright; the CRM is fallback-and-converge.

// NumberResolution is the outcome of resolving a user's agent number.
// ShouldPersist is true when the value came from the CRM and the profile
// should be converged to it.
type NumberResolution struct {
	Value         string
	Assigned      bool
	ShouldPersist bool
}

// ResolveAgentNumber resolves the agent number for a profile. The CRM lookup
// is injected so the precedence logic stays a pure function: it returns the
// custom-field value for the profile's email, or "" when no contact or field
// exists. The lookup is only invoked when the profile lacks a number.
func ResolveAgentNumber(p *UserProfile, lookup func(email string) (string, error)) (NumberResolution, error) {
	if p.HasAgentNumber && p.AgentNumber != "" {
		return NumberResolution{Value: p.AgentNumber, Assigned: true}, nil
	}
	if p.Email == "" {
		return NumberResolution{Value: NumberNotAssigned}, nil
	}

	value, err := lookup(p.Email)
	if err != nil {
		return NumberResolution{Value: NumberNotAssigned}, err
	}
	if value == "" || value == NumberNotAssigned {
		return NumberResolution{Value: NumberNotAssigned}, nil
	}
	return NumberResolution{Value: value, Assigned: true, ShouldPersist: !p.HasAgentNumber}, nil
}

// ============================================================
// Number state machine
// ============================================================

// NumberStatus enumerates the states of the agent-number field during a
// bootstrap: Unknown → CheckingProfile → [Assigned | CheckingCRM] →
// [Assigned | NotAssigned]. Assigned is terminal per request.
type NumberStatus string

const (
	NumberStatusUnknown         NumberStatus = "unknown"
	NumberStatusCheckingProfile NumberStatus = "checking_profile"
	NumberStatusCheckingCRM     NumberStatus = "checking_crm"
	NumberStatusAssigned        NumberStatus = "assigned"
	NumberStatusNotAssigned     NumberStatus = "not_assigned"
)

// NumberEvent drives NumberState transitions.
type NumberEvent struct {
	Kind  NumberEventKind
	Value string
}

type NumberEventKind int

const (
	EventBootstrapStarted NumberEventKind = iota
	EventProfileHasNumber
	EventProfileLacksNumber
	EventCRMFoundNumber
	EventCRMEmpty
	EventCRMFailed
)

// NumberState is the reducer state for the number field.
type NumberState struct {
	Status NumberStatus
	Value  string
}

// NextNumberState applies an event to the current state. Assigned is
// terminal: once a number is adopted, later events (stale in-flight lookups)
// cannot regress it. This is the last-write-wins rule reduced to a
// monotonic transition.
func NextNumberState(s NumberState, ev NumberEvent) NumberState {
	if s.Status == NumberStatusAssigned {
		return s
	}
	switch ev.Kind {
	case EventBootstrapStarted:
		return NumberState{Status: NumberStatusCheckingProfile}
	case EventProfileHasNumber:
		return NumberState{Status: NumberStatusAssigned, Value: ev.Value}
	case EventProfileLacksNumber:
		return NumberState{Status: NumberStatusCheckingCRM}
	case EventCRMFoundNumber:
		return NumberState{Status: NumberStatusAssigned, Value: ev.Value}
	case EventCRMEmpty, EventCRMFailed:
		return NumberState{Status: NumberStatusNotAssigned, Value: NumberNotAssigned}
	}
	return s
}

// ============================================================
// Workflow relay
// ============================================================

// NumberPurchaseRequest is forwarded verbatim to the workflow engine; only
// user_id and email are interpreted locally.
type NumberPurchaseRequest map[string]any

func (r NumberPurchaseRequest) stringField(key string) string {
	v, _ := r[key].(string)
	return v
}

func (r NumberPurchaseRequest) UserID() string { return r.stringField("user_id") }
func (r NumberPurchaseRequest) Email() string  { return r.stringField("email") }

// WorkflowAck is the workflow engine's synchronous acknowledgment. The
// eventual phone number usually arrives later via the callback, but some
// workflow configurations return it inline.
type WorkflowAck struct {
	Success      bool           `json:"success"`
	PhoneNumber  string         `json:"phoneNumber,omitempty"`
	FriendlyName string         `json:"friendlyName,omitempty"`
	Message      string         `json:"message,omitempty"`
	Raw          map[string]any `json:"-"`
}

// AgentNumberCallback is the asynchronous callback body from the workflow
// engine after a number purchase completes.
type AgentNumberCallback struct {
	PhoneNumber  string `json:"phoneNumber"`
	UserID       string `json:"user_id"`
	FriendlyName string `json:"friendlyName"`
}

// Cleaned strips the "=" prefix artifact the workflow engine's expression
// nodes sometimes leave on values.
func (c AgentNumberCallback) Cleaned() AgentNumberCallback {
	return AgentNumberCallback{
		PhoneNumber:  strings.TrimPrefix(c.PhoneNumber, "="),
		UserID:       strings.TrimPrefix(c.UserID, "="),
		FriendlyName: strings.TrimPrefix(c.FriendlyName, "="),
	}
}
