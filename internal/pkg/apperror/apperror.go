package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an application error so transport layers can map it
// to a status code without inspecting message strings.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindUserNotFound    Kind = "USER_NOT_FOUND"
	KindSessionNotFound Kind = "SESSION_NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindSessionEnded    Kind = "SESSION_ENDED"
	KindGeneration      Kind = "GENERATION_FAILURE"
	KindPersistence     Kind = "PERSISTENCE_FAILURE"
	KindValidation      Kind = "VALIDATION_FAILURE"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, never serialized to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated() *Error {
	return New(KindUnauthenticated, "User not authenticated")
}

func UserNotFound() *Error {
	return New(KindUserNotFound, "User not found")
}

func SessionNotFound() *Error {
	return New(KindSessionNotFound, "Session not found")
}

func Forbidden() *Error {
	return New(KindForbidden, "Unauthorized")
}

func SessionEnded() *Error {
	return New(KindSessionEnded, "Session has ended")
}

func Generation(err error) *Error {
	return Wrap(KindGeneration, "Error processing message", err)
}

func Persistence(err error) *Error {
	return Wrap(KindPersistence, "Storage operation failed", err)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

// KindOf extracts the Kind from any error in the chain.
// Unclassified errors are treated as persistence failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindUserNotFound, KindSessionNotFound:
		return fiber.StatusNotFound
	case KindForbidden:
		return fiber.StatusForbidden
	case KindSessionEnded:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusBadRequest
	case KindGeneration:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
