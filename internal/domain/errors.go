package domain

import "errors"

// ErrorKind classifies a domain error for callers that need to react to it
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindConflict      ErrorKind = "CONFLICT"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a validation error, the most common kind
func NewDomainError(message string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: message}
}

func newError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// Forbidden builds an authorization error carrying the policy reason
func Forbidden(reason string) *DomainError {
	return newError(KindAuthorization, reason)
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Action errors
var (
	ErrActionNotFound        = newError(KindNotFound, "action not found")
	ErrInvalidProgress       = NewDomainError("progress must be between 0 and 100")
	ErrInvalidStatus         = NewDomainError("invalid status transition")
	ErrInvalidCategory       = NewDomainError("invalid category")
	ErrInvalidPriority       = NewDomainError("invalid priority")
	ErrEmptyTitle            = NewDomainError("title is required")
	ErrEmptyResponsible      = NewDomainError("responsible party is required")
	ErrActionClosed          = newError(KindConflict, "action is already validated")
	ErrNotValidated          = newError(KindConflict, "only validated actions can be archived")
	ErrNotPendingValidation  = newError(KindConflict, "action is not pending validation")
	ErrAwaitingValidation    = newError(KindConflict, "action is pending validation and must be validated, not acknowledged")
	ErrHasChildren           = newError(KindConflict, "operation only applies to actions without children")
	ErrParentProgressManaged = newError(KindConflict, "progress of a parent action is computed from its children")
	ErrAlreadyAcknowledged   = newError(KindConflict, "action already acknowledged by this agent")
	ErrEmptyComment          = NewDomainError("comment body is required")
	ErrParentNotFound        = newError(KindNotFound, "parent action not found")
	ErrNoActionIDs           = NewDomainError("at least one action id is required")
)

// Directory errors
var (
	ErrAgentNotFound = newError(KindNotFound, "agent not found")
	ErrScopeNotFound = newError(KindNotFound, "scope not found")
)

// Diffusion errors
var (
	ErrMissingSource    = NewDomainError("diffusion source is required")
	ErrNoTargets        = NewDomainError("diffusion needs at least one scope or recipient")
	ErrInvalidMode      = NewDomainError("invalid diffusion mode")
	ErrMissingInitiator = NewDomainError("diffusion initiator is required")
)
