// Package secret provides an opaque string type for tokens and client
// secrets. The raw value is only reachable through Reveal; every formatting,
// logging and text-marshaling path prints a redaction marker instead.
package secret

import (
	"fmt"
	"log/slog"
)

// Redacted is what a non-empty String renders as.
const Redacted = "[REDACTED]"

// String holds a secret value.
type String struct {
	value string
}

// New wraps a raw value.
func New(value string) String {
	return String{value: value}
}

// Reveal returns the raw value. Only the HTTP layer and the persistence
// codec should call it.
func (s String) Reveal() string {
	return s.value
}

// IsEmpty reports whether the secret holds no value.
func (s String) IsEmpty() bool {
	return s.value == ""
}

// Equal compares two secrets without exposing either.
func (s String) Equal(other String) bool {
	return s.value == other.value
}

// String implements fmt.Stringer.
func (s String) String() string {
	if s.value == "" {
		return ""
	}
	return Redacted
}

// GoString implements fmt.GoStringer so %#v is redacted as well.
func (s String) GoString() string {
	return fmt.Sprintf("secret.String(%q)", s.String())
}

// Format implements fmt.Formatter, covering verbs that bypass String.
func (s String) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('#') {
			fmt.Fprint(f, s.GoString())
			return
		}
		fmt.Fprint(f, s.String())
	case 'q':
		fmt.Fprintf(f, "%q", s.String())
	default:
		fmt.Fprint(f, s.String())
	}
}

// LogValue implements slog.LogValuer.
func (s String) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalText keeps secrets out of generic encoders. Persistence code must
// serialize Reveal() explicitly.
func (s String) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
