// Package classify decides whether a decoded API response is an error, a
// collection or a single resource. All shape sniffing lives here.
package classify

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind discriminates a decoded response.
type Kind int

const (
	KindUnknown Kind = iota // scalar, null or otherwise unusable
	KindError               // object carrying an error signature
	KindList                // JSON array
	KindObject              // single resource
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Response is a decoded payload tagged with its Kind.
// List is set for KindList, Object for KindObject and KindError.
type Response struct {
	Kind   Kind
	List   []any
	Object map[string]any
}

// Message returns a human readable reason for an error response.
func (r Response) Message() string {
	if r.Kind != KindError {
		return ""
	}
	for _, k := range []string{"message", "error", "detail", "errors"} {
		if v, ok := r.Object[k]; ok && !isEmpty(v) {
			if s, ok := v.(string); ok {
				return s
			}
			b, _ := json.Marshal(v)
			return string(b)
		}
	}
	return "unknown API error"
}

// Classify inspects v and returns the tagged Response.
func Classify(v any) Response {
	switch x := v.(type) {
	case []any:
		return Response{Kind: KindList, List: x}
	case map[string]any:
		if IsErrorObject(x) {
			return Response{Kind: KindError, Object: x}
		}
		return Response{Kind: KindObject, Object: x}
	default:
		return Response{Kind: KindUnknown}
	}
}

// IsErrorObject reports whether v is a single JSON object shaped like a failed
// HTTP response. Lists and well-formed resources are never errors.
func IsErrorObject(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}

	// explicit error fields
	if e, ok := obj["error"]; ok && !isEmpty(e) {
		return true
	}
	if e, ok := obj["errors"]; ok && !isEmpty(e) {
		return true
	}

	// status code >= 400 accompanied by a reason
	for _, k := range []string{"status", "status_code", "code"} {
		if code := asStatus(obj[k]); code >= 400 {
			for _, reason := range []string{"message", "detail", "error"} {
				if _, ok := obj[reason]; ok {
					return true
				}
			}
		}
	}
	return false
}

// isEmpty reports whether v is nil, false, an empty string or an empty container.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// asStatus converts a JSON scalar into an HTTP status code, 0 when it is not one.
func asStatus(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
