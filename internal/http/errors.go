package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/target/codegen-api/internal/errors"
)

// statusClientClosedRequest is logged when the caller disconnects before a response.
const statusClientClosedRequest = 499

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// StatusForCode maps an application error code to its HTTP status.
func StatusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.ErrCodeResourceExhausted:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError renders err as a JSON error body.
// Errors that are not AppErrors are reported as internal without leaking their text.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.Canceled) {
			WriteError(w, ErrorParams{Code: statusClientClosedRequest, ErrCode: "canceled", Err: err})
			return
		}
		WriteJSON(w, http.StatusInternalServerError, errorBody{
			Error:   string(apperrors.ErrCodeInternal),
			Message: "Internal server error",
		})
		return
	}

	body := errorBody{
		Error:   string(appErr.Code),
		Message: appErr.Error(),
		Field:   appErr.Field,
	}
	if appErr.Code == apperrors.ErrCodeResourceExhausted {
		secs := appErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		body.RetryAfter = secs
	}
	WriteJSON(w, StatusForCode(appErr.Code), body)
}
