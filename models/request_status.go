package models

// Workflow statuses shared by telecom, bank and NPCI requests
const (
	RequestStatusPending    = "pending"
	RequestStatusApproved   = "approved"
	RequestStatusRejected   = "rejected"
	RequestStatusDispatched = "dispatched"
	RequestStatusCompleted  = "completed"
)

// IsValidRequestTransition reports whether a request may move from one status
// to another.
//
//	pending -> approved | rejected
//	approved -> dispatched
//	approved | dispatched -> completed
func IsValidRequestTransition(from, to string) bool {
	switch to {
	case RequestStatusApproved, RequestStatusRejected:
		return from == RequestStatusPending
	case RequestStatusDispatched:
		return from == RequestStatusApproved
	case RequestStatusCompleted:
		return from == RequestStatusApproved || from == RequestStatusDispatched
	}
	return false
}
