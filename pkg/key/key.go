// Package key implements value identities and the specialized lookups that stateful pipelets use
// to resolve which held value a remove or an update refers to.
//
// A Key is an ordered list of field names. The identity of a value is the concatenation of the
// string forms of its key fields separated by Separator. Lookups are specialized once per key
// shape: Specialize returns a Locator closure with the field names already bound, so the field
// count is never re-dispatched on a per-call basis.
package key

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l7mp/pipelet/pkg/value"
)

// Separator joins the string forms of key fields into an identity.
const Separator = "#"

// NotFound is returned by a Locator when the candidate is not present.
const NotFound = -1

// ErrInvalidKey is returned for an empty key or a key with an empty field name.
var ErrInvalidKey = errors.New("invalid key")

// Key is an ordered, non-empty list of field names.
type Key []string

// Default is the key used when none is configured.
var Default = Key{"id"}

// New creates a key from field names.
func New(fields ...string) (Key, error) {
	k := Key(fields)
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Validate checks that the key is non-empty and has no empty field names.
func (k Key) Validate() error {
	if len(k) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for i, f := range k {
		if f == "" {
			return fmt.Errorf("%w: empty field name at position %d", ErrInvalidKey, i)
		}
	}
	return nil
}

// Equal reports whether two keys have the same fields in the same order.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

var escaper = strings.NewReplacer(`\`, `\\`, Separator, `\`+Separator)

// Identity returns the identity string of a value. In composite identities the separator and the
// backslash are escaped inside field strings, so distinct field tuples never share an identity.
func (k Key) Identity(v value.Value) string {
	if len(k) == 1 {
		return value.String(v[k[0]])
	}
	parts := make([]string, len(k))
	for i, f := range k {
		parts[i] = escaper.Replace(value.String(v[f]))
	}
	return strings.Join(parts, Separator)
}

// Has reports whether the value carries every key field.
func (k Key) Has(v value.Value) bool {
	for _, f := range k {
		if _, ok := v[f]; !ok {
			return false
		}
	}
	return true
}

// Match reports whether two values have equal key fields.
func (k Key) Match(a, b value.Value) bool {
	for _, f := range k {
		if !value.ScalarEqual(a[f], b[f]) {
			return false
		}
	}
	return true
}

// String returns a human readable form of the key.
func (k Key) String() string {
	return "[" + strings.Join(k, ",") + "]"
}
