package domain

// Error is the failure type surfaced to clients through event acknowledgments.
// Code is stable and machine-readable; Message is human-readable.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrAuthenticationFailed = &Error{Code: "AUTHENTICATION_FAILED", Message: "authentication failed"}
	ErrRateLimited          = &Error{Code: "RATE_LIMITED", Message: "rate limit exceeded, retry later"}
	ErrInvalidPayload       = &Error{Code: "INVALID_PAYLOAD", Message: "event payload is malformed"}
	ErrForbidden            = &Error{Code: "FORBIDDEN", Message: "not allowed"}
	ErrNotFound             = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrContentRejected      = &Error{Code: "CONTENT_REJECTED", Message: "message content rejected"}
	ErrConversationExists   = &Error{Code: "CONVERSATION_EXISTS", Message: "direct conversation already exists for this pair"}
	ErrInvalidParticipants  = &Error{Code: "INVALID_PARTICIPANTS", Message: "conversation participants must be two distinct users"}
	ErrContentTooLong       = &Error{Code: "CONTENT_TOO_LONG", Message: "message content exceeds maximum length"}
	ErrInvalidKind          = &Error{Code: "INVALID_KIND", Message: "unsupported kind"}
	ErrNotParticipant       = &Error{Code: "NOT_PARTICIPANT", Message: "user is not a participant of this conversation"}
	ErrInternal             = &Error{Code: "INTERNAL", Message: "internal error"}
)

// AsError maps any error to a client-safe *Error. Unknown errors collapse to
// ErrInternal so repository details never leak onto the wire.
func AsError(err error) *Error {
	if de, ok := err.(*Error); ok {
		return de
	}
	return ErrInternal
}
