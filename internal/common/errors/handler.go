package errors

import (
	"errors"
)

// ErrorHandler normalizes errors raised while serving a request and logs the
// internal detail that never reaches the client.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle returns the status code and client body for err.
func (h *ErrorHandler) Handle(route, requestID string, err error) (int, PublicError) {
	stdErr := h.normalizeError(err)
	h.logError(route, requestID, stdErr)
	return HTTPStatus(stdErr.Code), stdErr.Public(requestID)
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) logError(route, requestID string, stdErr *StandardError) {
	fields := map[string]interface{}{
		"route":     route,
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"category":  GetErrorCategory(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	}
	if len(stdErr.Fields) > 0 {
		fields["fields"] = stdErr.Fields
	}

	if HTTPStatus(stdErr.Code) >= 500 {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}
