package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed billing call.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuthenticationFailed
	KindServiceUnavailable
	KindCourseNotFound
	KindCourseAlreadyExists
	KindAlreadyExists
	KindValidationFailed
	KindNotEnoughMoney
	KindCourseAlreadyPaid
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindServiceUnavailable:
		return "billing service unavailable"
	case KindCourseNotFound:
		return "course not found"
	case KindCourseAlreadyExists:
		return "course already exists"
	case KindAlreadyExists:
		return "user already exists"
	case KindValidationFailed:
		return "validation failed"
	case KindNotEnoughMoney:
		return "not enough money"
	case KindCourseAlreadyPaid:
		return "course already paid"
	default:
		return "unknown billing error"
	}
}

// Error is returned by every Client method. Status is 0 for transport failures.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrServiceUnavailable   = &Error{Kind: KindServiceUnavailable}
	ErrCourseNotFound       = &Error{Kind: KindCourseNotFound}
	ErrCourseAlreadyExists  = &Error{Kind: KindCourseAlreadyExists}
	ErrAlreadyExists        = &Error{Kind: KindAlreadyExists}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed}
	ErrNotEnoughMoney       = &Error{Kind: KindNotEnoughMoney}
	ErrCourseAlreadyPaid    = &Error{Kind: KindCourseAlreadyPaid}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString("billing ")
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err. Errors that did not come from the
// billing client count as ServiceUnavailable.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindServiceUnavailable
}

// FieldErrors returns the per-field validation messages of a ValidationFailed error.
func FieldErrors(err error) map[string]string {
	var be *Error
	if errors.As(err, &be) && be.Fields != nil {
		return be.Fields
	}
	return nil
}

func unavailable(op string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Op: op, Err: err}
}

// statusKinds maps response statuses to kinds for one endpoint. Anything not
// listed is ServiceUnavailable.
type statusKinds map[int]Kind

var authOnly = statusKinds{http.StatusUnauthorized: KindAuthenticationFailed}

func (s statusKinds) with(status int, kind Kind) statusKinds {
	out := make(statusKinds, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[status] = kind
	return out
}

type errorBody struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func classify(op string, status int, body []byte, kinds statusKinds) *Error {
	e := &Error{Kind: KindServiceUnavailable, Op: op, Status: status}
	if k, ok := kinds[status]; ok {
		e.Kind = k
	}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		e.Message = strings.TrimSpace(parsed.Message)
		e.Fields = parseFieldErrors(parsed.Errors)
	}
	return e
}

// parseFieldErrors accepts {"f":["a","b"]}, {"f":"a"} and a JSON string holding
// either of those.
func parseFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var nested string
	if json.Unmarshal(raw, &nested) == nil {
		raw = json.RawMessage(nested)
	}

	var many map[string][]string
	if json.Unmarshal(raw, &many) == nil {
		out := make(map[string]string, len(many))
		for field, msgs := range many {
			out[field] = strings.Join(msgs, " ")
		}
		return out
	}

	var single map[string]string
	if json.Unmarshal(raw, &single) == nil {
		return single
	}

	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		sort.Strings(list)
		return map[string]string{"": strings.Join(list, " ")}
	}
	return nil
}
