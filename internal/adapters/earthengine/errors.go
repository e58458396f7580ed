package earthengine

import (
	"encoding/json"
	"fmt"
)

// APIError is an error reported by the platform. It is returned as-is so
// callers see the platform's own code and message.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("earthengine: %s (%d): %s", e.Status, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("earthengine: HTTP %d: %s", e.HTTPStatus, e.Message)
}

func decodeAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.HTTPStatus = status
		return envelope.Error
	}

	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return &APIError{HTTPStatus: status, Code: status, Message: msg}
}
