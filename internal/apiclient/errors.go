package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed call. Services decide how to present each kind;
// they never see raw transport errors.
type Kind int

const (
	// KindTransport: no response reached the client (dial, TLS, timeout, canceled).
	KindTransport Kind = iota + 1
	// KindValidation: the server rejected the request (4xx other than 404).
	KindValidation
	// KindNotFound: 404.
	KindNotFound
	// KindServer: 5xx, or a 2xx body that could not be decoded.
	KindServer
	// KindPrecondition: the caller supplied an unusable argument; no request was sent.
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "TRANSPORT"
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindServer:
		return "SERVER"
	case KindPrecondition:
		return "PRECONDITION"
	default:
		return "UNKNOWN"
	}
}

// Error is the single error shape returned by Client.
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int // 0 when no response was received

	// Detail is the message supplied by the server (or by the caller for
	// KindPrecondition). Empty when the server said nothing useful.
	Detail string
	Fields map[string][]string

	Err error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.describe()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) describe() string {
	switch e.Kind {
	case KindTransport:
		return "could not reach server"
	case KindValidation:
		return fmt.Sprintf("request rejected (status %d)", e.Status)
	case KindNotFound:
		return "not found"
	case KindServer:
		if e.Status >= 300 || e.Status == 0 {
			return fmt.Sprintf("server error (status %d)", e.Status)
		}
		return "malformed response from server"
	case KindPrecondition:
		return "invalid argument"
	default:
		return "request failed"
	}
}

// Precondition builds a KindPrecondition error for arguments rejected before
// any network call.
func Precondition(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// Message picks the user-presentable text for err: the server-supplied detail
// when there is one, otherwise fallback annotated with the failure kind.
func Message(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fallback + ": " + e.describe()
}

func classify(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// errorFromResponse builds an *Error for a non-2xx response. Both
// {"message": "..."} and {"errors": {"field": ["..."]}} bodies are flattened
// into Detail.
func errorFromResponse(method, path string, status int, body []byte) *Error {
	e := &Error{
		Kind:   classify(status),
		Method: method,
		Path:   path,
		Status: status,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "<") {
			e.Detail = s
		}
		return e
	}

	e.Fields = decodeFieldErrors(fields["errors"])
	switch {
	case stringField(fields, "message") != "":
		e.Detail = stringField(fields, "message")
	case stringField(fields, "error") != "":
		e.Detail = stringField(fields, "error")
	case len(e.Fields) > 0:
		e.Detail = flattenFields(e.Fields)
	case stringField(fields, "title") != "":
		e.Detail = stringField(fields, "title")
	}
	return e
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var byField map[string][]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		return byField
	}
	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := make(map[string][]string, len(single))
		for k, v := range single {
			out[k] = []string{v}
		}
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return map[string][]string{"": list}
	}
	return nil
}

// flattenFields renders field errors in a stable order:
// "Quantity: must be positive; UserId: required".
func flattenFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs := strings.Join(fields[k], ", ")
		if msgs == "" {
			continue
		}
		if k == "" {
			parts = append(parts, msgs)
			continue
		}
		parts = append(parts, k+": "+msgs)
	}
	return strings.Join(parts, "; ")
}
