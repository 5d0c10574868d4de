package api

import (
	"context"
	"errors"
	"net/http"

	"clarifier/pkg/apperrors"
)

type errorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeStateConflict, apperrors.CodeConcurrentUpdate:
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := apperrors.CodeOf(err)

	detail := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		detail = http.StatusText(status)
	} else {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			detail = appErr.Message
		}
	}
	s.writeJSON(w, status, errorResponse{Detail: detail, Code: code})
}
