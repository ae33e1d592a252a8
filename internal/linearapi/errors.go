package linearapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lindash/lindash/internal/auth"
)

// NetworkError is a transient transport failure. The caller may retry the
// request; this layer does not retry on its own.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the server replied with something this
// client could not decode. Retried like a network error, logged distinctly.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response during %s: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Classify wraps a raw request error into the taxonomy. Unauthenticated
// errors pass through untouched so callers can match them with errors.Is.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrUnauthenticated) {
		return auth.ErrUnauthenticated
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &MalformedResponseError{Op: op, Err: err}
	}
	// The graphql client surfaces some decode failures as plain strings.
	msg := err.Error()
	if strings.Contains(msg, "unmarshal") || strings.Contains(msg, "invalid character") ||
		strings.Contains(msg, "unexpected EOF") || strings.Contains(msg, "unexpected end of JSON") {
		return &MalformedResponseError{Op: op, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}
