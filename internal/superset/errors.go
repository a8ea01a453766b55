package superset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ClientError is a non-2xx response from Superset with whatever message the
// body carried.
type ClientError struct {
	Status    int
	Message   string
	ErrorText string
	Body      string
}

func (e *ClientError) Error() string {
	if msg := e.Text(); msg != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
}

// Text returns the message, falling back to the error field.
func (e *ClientError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorText
}

// newClientError extracts a message from Superset's error shapes:
// {"message": "..."}, {"message": {"field": ["..."]}}, {"error": "..."} and
// {"errors": [{"message": "..."}]}.
func newClientError(status int, body []byte) *ClientError {
	ce := &ClientError{Status: status, Body: strings.TrimSpace(string(body))}

	var raw struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		ce.ErrorText = ce.Body
		return ce
	}
	ce.ErrorText = raw.Error
	if len(raw.Message) > 0 {
		var s string
		if err := json.Unmarshal(raw.Message, &s); err == nil {
			ce.Message = s
		} else {
			ce.Message = flattenFieldErrors(raw.Message)
		}
	}
	if ce.Message == "" && ce.ErrorText == "" && len(raw.Errors) > 0 {
		ce.Message = raw.Errors[0].Message
	}
	return ce
}

// flattenFieldErrors renders a marshmallow validation map as "field: msg".
func flattenFieldErrors(raw json.RawMessage) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return strings.TrimSpace(string(raw))
	}
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		switch vv := v.(type) {
		case []interface{}:
			msgs := make([]string, 0, len(vv))
			for _, m := range vv {
				msgs = append(msgs, fmt.Sprint(m))
			}
			parts = append(parts, k+": "+strings.Join(msgs, ", "))
		default:
			parts = append(parts, k+": "+fmt.Sprint(vv))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ErrorMessage is the shared normaliser that turns any client error into the
// single line shown to users.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		if msg := ce.Text(); msg != "" {
			return msg
		}
		return ce.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 from Superset.
func IsNotFound(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Status == http.StatusNotFound
}
