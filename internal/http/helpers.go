package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/services"
)

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// extractClientIP considers proxy headers before the remote address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// errorResponse maps service errors to status codes.
func errorResponse(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrClientNotFound), errors.Is(err, core.ErrInstallmentNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrDuplicateClient):
		return ConflictError(err.Error())
	case errors.Is(err, core.ErrStorageBusy), errors.Is(err, core.ErrContention):
		return ServiceUnavailableError("storage busy, try again")
	case services.IsValidationError(err):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "request timed out")
	default:
		return InternalServerError("internal error")
	}
}

// fail logs err with the request logger and writes the mapped response.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	rb := errorResponse(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithOperation(op).WithError(err)
	if rb.statusCode >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	rb.Write(w)
}
