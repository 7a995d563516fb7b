package domain

import "errors"

// Kind classifies failures so the transport layer can pick a status code
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidCredentials
	KindInvalidOrExpiredToken
	KindMailDelivery
)

// Error is a failure whose Message is safe to show to the client
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Generic messages for the flows that must not reveal which check failed
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgInvalidResetToken  = "Invalid or expired token"
	MsgInternal           = "Internal server error"
)

func NewValidation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func NewConflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func NewUnauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func NewForbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NewNotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func NewMailDelivery(msg string) *Error { return &Error{Kind: KindMailDelivery, Message: msg} }

// ErrInvalidCredentials is returned for both unknown usernames and wrong passwords
var ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: MsgInvalidCredentials}

// ErrInvalidOrExpiredToken is returned for wrong, expired and already consumed reset tokens
var ErrInvalidOrExpiredToken = &Error{Kind: KindInvalidOrExpiredToken, Message: MsgInvalidResetToken}

// KindOf returns the kind of err, or KindInternal when err is not a domain error
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
