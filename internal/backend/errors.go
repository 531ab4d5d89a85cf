package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// codeNoRows is returned by the table API when a single-row read matches nothing.
const codeNoRows = "PGRST116"

// Error is a failure reported by the hosted backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Status != 0 {
		return fmt.Sprintf("backend: %d: %s", e.Status, msg)
	}
	return "backend: " + msg
}

// IsNoRows reports whether err is a single-row read that found nothing.
func IsNoRows(err error) bool {
	var be *Error
	return errors.As(err, &be) && (be.Code == codeNoRows || be.Status == http.StatusNotFound)
}

// IsUnauthorized reports whether the backend rejected the caller's credentials.
func IsUnauthorized(err error) bool {
	var be *Error
	return errors.As(err, &be) && (be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden)
}

// parseError decodes an error body. The table API, the auth API and storage
// each use a different shape, so every known field is tried.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var raw struct {
		Code             json.RawMessage `json:"code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Details          json.RawMessage `json:"details"`
		Hint             string          `json:"hint"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		ErrorCode        string          `json:"error_code"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		if len(body) > 0 && len(body) < 512 {
			e.Message = string(body)
		}
		return e
	}

	e.Code = rawString(raw.Code)
	if raw.ErrorCode != "" {
		e.Code = raw.ErrorCode
	}
	if e.Code == "" {
		e.Code = raw.Error
	}
	switch {
	case raw.Message != "":
		e.Message = raw.Message
	case raw.Msg != "":
		e.Message = raw.Msg
	case raw.ErrorDescription != "":
		e.Message = raw.ErrorDescription
	default:
		e.Message = raw.Error
	}
	e.Details = rawString(raw.Details)
	e.Hint = raw.Hint
	return e
}

// rawString renders a JSON value that may be a string or a number.
func rawString(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
