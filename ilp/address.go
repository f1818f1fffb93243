// Package ilp implements the ILPv4 OER packet codec and ILP address grammar.
package ilp

// MaxAddressLength is the maximum length, in bytes, of an ILP address.
const MaxAddressLength = 1023

// IsValidAddress reports whether s is a well-formed ILP address: a non-empty,
// dot-separated sequence of segments each matching [A-Za-z0-9_-]+, with no
// leading, trailing, or consecutive dots, and a total length of at most
// MaxAddressLength bytes.
func IsValidAddress(s string) bool {
	if len(s) == 0 || len(s) > MaxAddressLength {
		return false
	}
	if s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}

	segStart := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i == segStart {
				// empty segment: either "..", or handled by the leading/
				// trailing checks above for the first/last segment.
				return false
			}
			segStart = i + 1
			continue
		}
		if !isAddressChar(s[i]) {
			return false
		}
	}
	return true
}

func isAddressChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	default:
		return false
	}
}
