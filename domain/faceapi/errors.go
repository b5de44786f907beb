package faceapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the face API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API error (status %d)", e.Status)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Detail)
}

// parseAPIError extracts the server's detail message. The API answers with
// {"detail": "..."} or, for validation failures, {"detail": [{"msg": "..."}]}.
func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return &APIError{Status: status, Detail: s}
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return &APIError{Status: status, Detail: strings.Join(msgs, "; ")}
		}
	}
	return &APIError{Status: status, Detail: strings.TrimSpace(string(body))}
}

// Message returns a user-facing message for err, falling back to def when the
// error carries no server detail.
func Message(err error, def string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return def
}
