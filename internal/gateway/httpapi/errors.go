package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jkaninda/bureau/internal/accounting"
	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/ratelimit"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/users"
	"github.com/jkaninda/bureau/internal/validation"
	"github.com/jkaninda/bureau/internal/visitor"
	"github.com/jkaninda/okapi"
)

// ErrorBody is the standard error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// apiError is an error with a fixed status and client-facing message.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &apiError{status: http.StatusBadRequest, msg: msg}
}

// errorResponse maps err to a status code and a body that is safe to show
// to clients. Unknown errors become a bare 500.
func errorResponse(err error) (int, ErrorBody) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status, ErrorBody{Error: ae.msg}
	}
	var ve *validation.Error
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorBody{Error: "invalid input", Fields: ve.Fields}
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not found"}
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, ErrorBody{Error: "already exists"}
	case errors.Is(err, storage.ErrConstraint):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "constraint violation"}
	case errors.Is(err, security.ErrPermissionDenied):
		return http.StatusForbidden, ErrorBody{Error: "permission denied"}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorBody{Error: "rate limit exceeded"}
	case errors.Is(err, accounting.ErrInvalidParent):
		return http.StatusBadRequest, ErrorBody{Error: accounting.ErrInvalidParent.Error()}
	case errors.Is(err, accounting.ErrHasChildren),
		errors.Is(err, accounting.ErrBaseCurrency),
		errors.Is(err, visitor.ErrAlreadyCheckedIn),
		errors.Is(err, visitor.ErrNotCheckedIn):
		return http.StatusConflict, ErrorBody{Error: rootMessage(err)}
	case errors.Is(err, users.ErrInactive), errors.Is(err, company.ErrInactive):
		return http.StatusForbidden, ErrorBody{Error: rootMessage(err)}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal error"}
}

// rootMessage returns the message of the sentinel at the bottom of err's
// chain so that wrapping context such as ids is not leaked to clients.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		accounting.ErrHasChildren,
		accounting.ErrBaseCurrency,
		visitor.ErrAlreadyCheckedIn,
		visitor.ErrNotCheckedIn,
		users.ErrInactive,
		company.ErrInactive,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// writeError writes the mapped error response. 5xx errors are logged with
// their full chain.
func (g *Gateway) writeError(c *okapi.Context, err error) error {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		g.logger.ErrorContext(c.Context(), "request failed",
			slog.String("path", c.Request().URL.Path),
			slog.String("error", err.Error()),
		)
	}
	return c.JSON(status, body)
}

func writeHTTPError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
