package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindTransport Kind = iota
	KindUnauthenticated
	KindUnauthorized
	KindNotFound
	KindValidation
	KindServerError
)

var (
	ErrTransport       = errors.New("transport error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrServer          = errors.New("server error")
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServerError:
		return "server_error"
	default:
		return "transport"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindServerError:
		return ErrServer
	default:
		return ErrTransport
	}
}

// Error describes a failed API call. errors.Is matches both the kind
// sentinel (ErrNotFound, ErrUnauthenticated, ...) and the wrapped cause.
type Error struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	// Detail is the server-supplied message, when the body carried one.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Message returns the most user-presentable text for the error.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return e.Kind.String()
}

// KindOf returns the Kind of err, or KindTransport when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServerError
	default:
		return KindValidation
	}
}

// errorBody mirrors the API's ErrorResponse. Detail is a plain string for
// most errors and a list of field errors for request validation failures.
type errorBody struct {
	Detail    json.RawMessage `json:"detail"`
	Timestamp string          `json:"timestamp"`
}

type fieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return truncate(trimmed, 256)
	}
	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var fields []fieldError
	if err := json.Unmarshal(parsed.Detail, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			loc := make([]string, 0, len(f.Loc))
			for _, part := range f.Loc {
				loc = append(loc, fmt.Sprint(part))
			}
			if len(loc) > 0 {
				parts = append(parts, strings.Join(loc, ".")+": "+f.Msg)
			} else {
				parts = append(parts, f.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return truncate(string(parsed.Detail), 256)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
