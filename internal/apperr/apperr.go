package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindValidation          Kind = "ValidationError"
	KindOutOfStock          Kind = "OutOfStock"
	KindPaymentFailed       Kind = "PaymentFailed"
	KindConcurrencyConflict Kind = "ConcurrencyConflict"
	KindBadRequest          Kind = "BadRequest"
	KindInternal            Kind = "Internal"
)

// Codes surfaced to clients as errorKind.
const (
	CodeNotFound                = "NotFound"
	CodeUnknownVariation        = "UnknownVariation"
	CodeIncompleteSelection     = "IncompleteSelection"
	CodeInvalidVariationForPart = "InvalidVariationForPart"
	CodeProhibitedCombination   = "ProhibitedCombination"
	CodeInvalidPriceRules       = "InvalidPriceRules"
	CodeOutOfStock              = "OutOfStock"
	CodePaymentFailed           = "PaymentFailed"
	CodeConcurrencyConflict     = "ConcurrencyConflict"
	CodeInvalidTransition       = "InvalidStatusTransition"
	CodeBadRequest              = "BadRequest"
	CodeInternal                = "Internal"
)

// Error is the single error type crossing service boundaries. The ids point
// the client at the exact offending selection.
type Error struct {
	Kind         Kind
	Code         string
	Msg          string
	ProductID    string
	PartID       string
	VariationIDs []string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindOutOfStock, KindConcurrencyConflict:
		return http.StatusConflict
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) WithProduct(id string) *Error {
	e.ProductID = id
	return e
}

func (e *Error) WithPart(id string) *Error {
	e.PartID = id
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Msg: fmt.Sprintf("%s %s not found", what, id)}
}

func UnknownVariation(id string) *Error {
	return &Error{
		Kind:         KindNotFound,
		Code:         CodeUnknownVariation,
		Msg:          fmt.Sprintf("variation %s not found", id),
		VariationIDs: []string{id},
	}
}

func IncompleteSelection(partID string) *Error {
	return &Error{
		Kind:   KindValidation,
		Code:   CodeIncompleteSelection,
		Msg:    fmt.Sprintf("part %s has no selected variation", partID),
		PartID: partID,
	}
}

func InvalidVariationForPart(partID, variationID string) *Error {
	return &Error{
		Kind:         KindValidation,
		Code:         CodeInvalidVariationForPart,
		Msg:          fmt.Sprintf("variation %s does not belong to part %s", variationID, partID),
		PartID:       partID,
		VariationIDs: []string{variationID},
	}
}

func ProhibitedCombination(a, b string) *Error {
	return &Error{
		Kind:         KindValidation,
		Code:         CodeProhibitedCombination,
		Msg:          fmt.Sprintf("variations %s and %s cannot be combined", a, b),
		VariationIDs: []string{a, b},
	}
}

func InvalidPriceRules(variationID, msg string) *Error {
	return &Error{
		Kind:         KindValidation,
		Code:         CodeInvalidPriceRules,
		Msg:          msg,
		VariationIDs: []string{variationID},
	}
}

func OutOfStock(variationID string) *Error {
	return &Error{
		Kind:         KindOutOfStock,
		Code:         CodeOutOfStock,
		Msg:          fmt.Sprintf("variation %s is out of stock", variationID),
		VariationIDs: []string{variationID},
	}
}

func PaymentFailed(msg string, err error) *Error {
	return &Error{Kind: KindPaymentFailed, Code: CodePaymentFailed, Msg: msg, Err: err}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConcurrencyConflict, Code: CodeConcurrencyConflict, Msg: msg}
}

func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind: KindConcurrencyConflict,
		Code: CodeInvalidTransition,
		Msg:  fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Code: CodeBadRequest, Msg: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Msg: msg, Err: err}
}

// As extracts the *Error from err's chain. Anything else is wrapped as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error", err)
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

func HasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return As(err).HTTPStatus()
}
