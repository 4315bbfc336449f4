package udns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Kind identifies which variant of a Response is populated.
type Kind int

const (
	// KindEmpty is an HTTP 204, or a body that carried nothing usable.
	KindEmpty Kind = iota
	// KindText is a text/plain body, kept verbatim in Text.
	KindText
	// KindBytes is an application/zip body (batched zone exports), kept in Bytes.
	KindBytes
	// KindStructured is a decoded JSON body, kept in Value.
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindStructured:
		return "structured"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Keys merged into an accepted (202) response body from its headers, and the
// key that marks a report request.
const (
	KeyTaskID    = "task_id"
	KeyLocation  = "location"
	KeyRequestID = "requestId"
	KeyErrorCode = "errorCode"
)

// Response is the normalized result of a pipeline call. Exactly one of Text,
// Bytes, or Value is meaningful, selected by Kind. Structured values keep
// numbers as json.Number so error codes compare as strings regardless of how
// the server typed them.
type Response struct {
	Kind       Kind
	StatusCode int
	Text       string
	Bytes      []byte
	Value      any
}

// emptyObject returns a structured response holding an empty JSON object.
// Undecodable bodies normalize to this rather than failing the call.
func emptyObject(status int) *Response {
	return &Response{Kind: KindStructured, StatusCode: status, Value: map[string]any{}}
}

// Err returns the *RestError a strict client would have produced for r, or
// nil for a 1xx-3xx response. Callers on a permissive client use it to
// fail a single operation without switching the whole client to strict mode.
func (r *Response) Err() error {
	if r == nil || r.StatusCode < http.StatusBadRequest {
		return nil
	}

	return newRestError(r)
}

// NewObjectResponse wraps a JSON object as a structured response. Resolvers
// use it for synthetic terminal results.
func NewObjectResponse(obj map[string]any) *Response {
	return &Response{Kind: KindStructured, Value: obj}
}

// Unwrap returns the underlying value: the decoded JSON for structured
// responses, the text or bytes otherwise, and an empty map for KindEmpty.
func (r *Response) Unwrap() any {
	switch r.Kind {
	case KindText:
		return r.Text
	case KindBytes:
		return r.Bytes
	case KindStructured:
		return r.Value
	default:
		return map[string]any{}
	}
}

// Object returns the decoded JSON object, or false when the response is not
// a structured object (text, bytes, arrays, scalars).
func (r *Response) Object() (map[string]any, bool) {
	if r == nil || r.Kind != KindStructured {
		return nil, false
	}

	obj, ok := r.Value.(map[string]any)

	return obj, ok
}

// Get looks up a top-level key of a structured object.
func (r *Response) Get(key string) (any, bool) {
	obj, ok := r.Object()
	if !ok {
		return nil, false
	}

	v, ok := obj[key]

	return v, ok
}

// Has reports whether a structured object carries key.
func (r *Response) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// String returns a top-level scalar rendered as a string, or "".
func (r *Response) String(key string) string {
	v, _ := r.Get(key)
	return scalarString(v)
}

// Bool returns a top-level boolean, accepting "true"/"false" strings too.
func (r *Response) Bool(key string) bool {
	v, _ := r.Get(key)

	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// TaskID returns the task id merged from the x-task-id header.
func (r *Response) TaskID() string { return r.String(KeyTaskID) }

// Location returns the polling URL merged from the location header.
func (r *Response) Location() string { return r.String(KeyLocation) }

// RequestID returns the report request id.
func (r *Response) RequestID() string { return r.String(KeyRequestID) }

// ErrorCode returns the API errorCode of a structured object, or "".
func (r *Response) ErrorCode() string { return r.String(KeyErrorCode) }

// Decode re-marshals the structured value into v. Useful for endpoints whose
// shape is stable enough to deserve a typed struct.
func (r *Response) Decode(v any) error {
	if r.Kind != KindStructured {
		return fmt.Errorf("udns: cannot decode %s response", r.Kind)
	}

	data, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Errorf("udns: re-encoding response: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("udns: decoding response: %w", err)
	}

	return nil
}

// decodeJSON decodes body with numbers preserved as json.Number.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}

// scalarString renders strings, numbers, and booleans; anything else is "".
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
