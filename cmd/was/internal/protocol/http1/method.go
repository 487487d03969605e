package http1

import "strings"

// Method is a request method recognized by the parser.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Add new methods here; anything missing is a malformed request.
var methods = []Method{MethodGet, MethodPost}

// ParseMethod matches s case-insensitively against the recognized methods.
func ParseMethod(s string) (Method, bool) {
	for _, m := range methods {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}
