package signstring

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LerianStudio/lib-payscore/payscore/canonical"
)

// ErrUnsupportedMethod is returned for HTTP methods other than GET, POST and PUT.
var ErrUnsupportedMethod = errors.New("signstring: unsupported method")

const lineTerminator = "\n"

// Request carries the fields of one outgoing request sign-string.
//
// Body may be nil, a string or []byte (used verbatim), or structured data
// (maps, slices, structs, canonical.Value), which is canonicalized and
// serialized as compact JSON. Meta, when set, replaces the body line verbatim
// and is used for upload-style calls that sign a JSON meta part.
type Request struct {
	Method    string
	Path      string
	Timestamp string
	Nonce     string
	Body      any
	Meta      string
}

// BuildRequest returns the request sign-string. GET requests always sign an
// empty body line unless Meta is set.
func BuildRequest(req Request) (string, error) {
	method := strings.ToUpper(req.Method)

	body, err := requestBody(method, req.Body, req.Meta)
	if err != nil {
		return "", err
	}

	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var b strings.Builder

	writeLine(&b, method)
	writeLine(&b, path)
	writeLine(&b, req.Timestamp)
	writeLine(&b, req.Nonce)
	writeLine(&b, body)

	return b.String(), nil
}

// RequestBody returns the exact body line BuildRequest would sign for the
// given method and body. Transports send these bytes so that the wire payload
// never diverges from the signed one.
func RequestBody(method string, body any) (string, error) {
	return requestBody(strings.ToUpper(method), body, "")
}

func requestBody(method string, body any, meta string) (string, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return "", fmt.Errorf("method %q: %w", method, ErrUnsupportedMethod)
	}

	if meta != "" {
		return meta, nil
	}

	if method == http.MethodGet {
		return "", nil
	}

	return serializeBody(body)
}

func serializeBody(body any) (string, error) {
	switch t := body.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		out, err := canonical.Serialize(body)
		if err != nil {
			return "", fmt.Errorf("serialize body: %w", err)
		}

		return string(out), nil
	}
}

// BuildResponse returns the response sign-string. The body is used exactly as
// received and is never re-serialized.
func BuildResponse(timestamp, nonce, body string) string {
	var b strings.Builder

	writeLine(&b, timestamp)
	writeLine(&b, nonce)
	writeLine(&b, body)

	return b.String()
}

func writeLine(b *strings.Builder, field string) {
	b.WriteString(field)
	b.WriteString(lineTerminator)
}
