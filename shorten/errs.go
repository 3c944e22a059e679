package shorten

import (
	"fmt"

	"github.com/thatguystone/cog/stringc"
)

// ErrIndent is used to indent nested error output
const ErrIndent = "    "

// A ConfigError is returned by New when the Config cannot be used. It is
// always returned before any document is touched.
type ConfigError struct {
	Field string
	Msg   string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", err.Field, err.Msg)
}

// A TransportError is returned when the shortening service could not be
// reached or did not answer with a 2xx status. It aborts the rewrite of the
// current document.
type TransportError struct {
	URL string // Request URL, without auth parameters
	Err error
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", err.URL, err.Err)
}

func (err *TransportError) Unwrap() error {
	return err.Err
}

// A ResponseError carries a non-2xx response from the shortening service
type ResponseError struct {
	Code int
	Body string
}

func (err *ResponseError) Error() string {
	var body string
	if err.Body != "" {
		body = "\n" + stringc.Indent(err.Body, ErrIndent)
	}

	return fmt.Sprintf("http error: %d%s", err.Code, body)
}
