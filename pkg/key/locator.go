package key

import (
	"github.com/l7mp/pipelet/pkg/value"
)

// Locator returns the position of the first value in values whose key fields equal those of the
// candidate, or NotFound. A candidate missing any key field is never found.
type Locator func(values []value.Value, candidate value.Value) int

// Specialize selects the lookup strategy for a key shape. Single-field and two-field keys get
// dedicated loops, longer keys compare all fields in order. The key must be valid.
func Specialize(k Key) Locator {
	switch len(k) {
	case 1:
		return locate1(k[0])
	case 2:
		return locate2(k[0], k[1])
	default:
		return locateN(append(Key(nil), k...))
	}
}

func locate1(f string) Locator {
	return func(values []value.Value, candidate value.Value) int {
		c, ok := candidate[f]
		if !ok {
			return NotFound
		}

		// fast path for the common string and int64 ids
		switch cv := c.(type) {
		case string:
			for i, v := range values {
				if s, ok := v[f].(string); ok && s == cv {
					return i
				}
			}
			return NotFound
		case int64:
			for i, v := range values {
				switch n := v[f].(type) {
				case int64:
					if n == cv {
						return i
					}
				default:
					if value.ScalarEqual(n, cv) {
						return i
					}
				}
			}
			return NotFound
		}

		for i, v := range values {
			if value.ScalarEqual(v[f], c) {
				return i
			}
		}
		return NotFound
	}
}

func locate2(f1, f2 string) Locator {
	return func(values []value.Value, candidate value.Value) int {
		c1, ok1 := candidate[f1]
		c2, ok2 := candidate[f2]
		if !ok1 || !ok2 {
			return NotFound
		}

		for i, v := range values {
			if value.ScalarEqual(v[f1], c1) && value.ScalarEqual(v[f2], c2) {
				return i
			}
		}
		return NotFound
	}
}

func locateN(k Key) Locator {
	return func(values []value.Value, candidate value.Value) int {
		cs := make([]any, len(k))
		for j, f := range k {
			c, ok := candidate[f]
			if !ok {
				return NotFound
			}
			cs[j] = c
		}

	next:
		for i, v := range values {
			for j, f := range k {
				if !value.ScalarEqual(v[f], cs[j]) {
					continue next
				}
			}
			return i
		}
		return NotFound
	}
}
