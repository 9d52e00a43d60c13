package httputil

import (
	"encoding/json"
	"net/http"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"
)

// problemTypes points each status the API emits at its RFC 9110 definition.
// Anything else is reported as about:blank.
var problemTypes = map[int]string{
	http.StatusBadRequest:            "https://www.rfc-editor.org/rfc/rfc9110#name-400-bad-request",
	http.StatusUnauthorized:          "https://www.rfc-editor.org/rfc/rfc9110#name-401-unauthorized",
	http.StatusNotFound:              "https://www.rfc-editor.org/rfc/rfc9110#name-404-not-found",
	http.StatusConflict:              "https://www.rfc-editor.org/rfc/rfc9110#name-409-conflict",
	http.StatusRequestEntityTooLarge: "https://www.rfc-editor.org/rfc/rfc9110#name-413-content-too-large",
	http.StatusInternalServerError:   "https://www.rfc-editor.org/rfc/rfc9110#name-500-internal-server-error",
	http.StatusServiceUnavailable:    "https://www.rfc-editor.org/rfc/rfc9110#name-503-service-unavailable",
}

// ProblemDetail is an RFC 7807 problem document. Extra members are written
// beside the standard ones but can never replace them.
type ProblemDetail struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Extra    map[string]interface{}
}

// NewProblem builds the problem document for status.
func NewProblem(status int, detail string) ProblemDetail {
	typ, ok := problemTypes[status]
	if !ok {
		typ = "about:blank"
	}
	return ProblemDetail{Type: typ, Title: http.StatusText(status), Status: status, Detail: detail}
}

func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	members := make(map[string]interface{}, len(p.Extra)+5)
	for k, v := range p.Extra {
		members[k] = v
	}
	members["type"] = p.Type
	members["title"] = p.Title
	members["status"] = p.Status
	if p.Detail != "" {
		members["detail"] = p.Detail
	} else {
		delete(members, "detail")
	}
	if p.Instance != "" {
		members["instance"] = p.Instance
	} else {
		delete(members, "instance")
	}
	return json.Marshal(members)
}

// RespondJSON writes v as the JSON body with status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	if !write(w, status, contentTypeJSON, v) {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// RespondError writes a problem document for status.
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem document carrying extra members,
// e.g. the offending field of a validation error.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	p := NewProblem(status, detail)
	p.Extra = extras
	if !write(w, status, contentTypeProblem, p) {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// write encodes v before touching the response, so a failure leaves the
// writer clean for a fallback. It reports whether anything was written.
func write(w http.ResponseWriter, status int, contentType string, v interface{}) bool {
	body, err := json.Marshal(v)
	if err != nil {
		return false
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return true
}
