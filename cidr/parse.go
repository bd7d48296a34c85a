package cidr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRange matches every *MalformedRangeError with errors.Is.
var ErrMalformedRange = errors.New("malformed range")

// MalformedRangeError is returned by Parse for tokens that are not a dotted-quad
// IPv4 address with an optional decimal prefix length.
type MalformedRangeError struct {
	Token  string
	Reason string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("malformed range %q: %s", e.Token, e.Reason)
}

func (e *MalformedRangeError) Is(target error) bool {
	return target == ErrMalformedRange
}

func malformed(token, reason string) *MalformedRangeError {
	return &MalformedRangeError{Token: token, Reason: reason}
}

// Parse normalizes "a.b.c.d" (implicitly /32) or "a.b.c.d/n" into a canonical
// AddressRange. Host bits below the prefix are cleared, so "10.0.0.5/24"
// becomes 10.0.0.0/24. Tokens carrying ':' are rejected without being parsed.
func Parse(token string) (AddressRange, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return AddressRange{}, malformed(token, "empty token")
	}
	if strings.IndexByte(s, ':') >= 0 {
		return AddressRange{}, malformed(token, "IPv6 addresses are not supported")
	}

	addrPart, prefixPart, hasPrefix := strings.Cut(s, "/")

	prefixLen := uint8(32)
	if hasPrefix {
		// Zero padded lengths such as /032 are accepted, as netmask parsers do.
		p, ok := parseDecimal(prefixPart, 3, 32)
		if !ok {
			return AddressRange{}, malformed(token, "prefix length must be a number between 0 and 32")
		}
		prefixLen = uint8(p)
	}

	ip, err := parseDottedQuad(addrPart)
	if err != "" {
		return AddressRange{}, malformed(token, err)
	}

	return NewAddressRange(ip, prefixLen), nil
}

// ParseAll normalizes a batch. Malformed tokens are skipped and returned
// separately; they never abort the batch.
func ParseAll(tokens []string) ([]AddressRange, []*MalformedRangeError) {
	ranges := make([]AddressRange, 0, len(tokens))
	var failures []*MalformedRangeError
	for _, token := range tokens {
		r, err := Parse(token)
		if err != nil {
			var mre *MalformedRangeError
			if errors.As(err, &mre) {
				failures = append(failures, mre)
			}
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, failures
}

// parseDottedQuad returns the numeric address or a non-empty failure reason.
func parseDottedQuad(s string) (uint32, string) {
	var ip uint32
	octets := 0
	for len(s) > 0 || octets == 0 {
		part := s
		rest := ""
		if i := strings.IndexByte(s, '.'); i >= 0 {
			part, rest = s[:i], s[i+1:]
			if rest == "" {
				return 0, "expected 4 octets"
			}
		}
		octets++
		if octets > 4 {
			return 0, "expected 4 octets"
		}
		if len(part) > 1 && part[0] == '0' {
			return 0, fmt.Sprintf("leading zero in octet %q", part)
		}
		v, ok := parseDecimal(part, 3, 255)
		if !ok {
			return 0, fmt.Sprintf("octet %q out of range", part)
		}
		ip = ip<<8 | uint32(v)
		s = rest
	}
	if octets != 4 {
		return 0, "expected 4 octets"
	}
	return ip, ""
}

// parseDecimal accepts 1 to maxDigits ASCII digits with a value <= max.
func parseDecimal(s string, maxDigits, max int) (int, bool) {
	if len(s) == 0 || len(s) > maxDigits {
		return 0, false
	}
	v := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	if v > max {
		return 0, false
	}
	return v, true
}
