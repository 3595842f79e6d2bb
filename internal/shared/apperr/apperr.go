// Package apperr defines the error kinds surfaced by the lifecycle engine.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindIllegalTransition
	KindNotFound
	KindAuthorization
	KindInvalidToken
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindIllegalTransition:
		return "illegal_transition"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindInvalidToken:
		return "expired_or_invalid_token"
	default:
		return "internal"
	}
}

// Error is a domain error carrying its kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values of the same kind and message so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }
func IllegalTransition(msg string) *Error { return &Error{Kind: KindIllegalTransition, Msg: msg} }
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Msg: msg} }
func InvalidToken(msg string) *Error { return &Error{Kind: KindInvalidToken, Msg: msg} }

// Validationf formats a validation message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// KindOf reports the kind of err, or KindInternal for errors that carry none.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var kinded interface{ ErrKind() Kind }
	if errors.As(err, &kinded) {
		return kinded.ErrKind()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to an HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindIllegalTransition:
		return fiber.StatusUnprocessableEntity
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindInvalidToken:
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}

// Detailer is implemented by errors that render extra JSON fields.
type Detailer interface {
	Details() fiber.Map
}

// Handler is a fiber ErrorHandler rendering domain errors as JSON.
func Handler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	kind := KindOf(err)
	body := fiber.Map{"error": err.Error(), "kind": kind.String()}
	if kind == KindInternal {
		body["error"] = "internal error"
	}
	var d Detailer
	if errors.As(err, &d) {
		for k, v := range d.Details() {
			body[k] = v
		}
	}
	return c.Status(Status(kind)).JSON(body)
}
