package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Body is the JSON error payload returned to the role screens.
type Body struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// UserMessage returns the text a screen should show for err.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotFound, KindValidation:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Message
		}
		return err.Error()
	case KindUnauthorized:
		return "Session expired. Please log in again."
	case KindBackend:
		var pe *PartialError
		if errors.As(err, &pe) {
			return pe.Saved + " was saved, but the visit status could not be updated. Refresh before trying again."
		}
		return "The hospital service could not complete the request. Please try again."
	default:
		return "internal server error"
	}
}

// StatusCode maps a Kind to an HTTP status.
func StatusCode(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an echo.HTTPError. Errors that already are
// echo.HTTPError pass through untouched.
func HTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	kind := KindOf(err)
	body := Body{Kind: kind.String(), Message: UserMessage(err)}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.HasProblems() {
		body.Fields = ve.Fields
	}

	he = echo.NewHTTPError(StatusCode(kind), body)
	if kind == KindUnknown || kind == KindBackend {
		he = he.SetInternal(err)
	}
	return he
}
