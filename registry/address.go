package registry

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte principal address in its canonical lowercase hex
// form ("0x" + 40 hex digits).
type Address string

// ZeroAddress is never a valid owner.
const ZeroAddress = Address("0x0000000000000000000000000000000000000000")

// ParseAddress normalizes a caller-supplied address string. Addresses are
// compared case-insensitively, so the canonical form is lowercase.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("invalid address %q: missing 0x prefix", s)
	}

	body := s[2:]
	if len(body) != 40 {
		return "", fmt.Errorf("invalid address %q: expect 40 hex digits", s)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("invalid address %q: %v", s, err)
	}

	addr := Address("0x" + strings.ToLower(body))
	if addr == ZeroAddress {
		return "", fmt.Errorf("invalid address %q: zero address", s)
	}

	return addr, nil
}

func (a Address) String() string {
	return string(a)
}
