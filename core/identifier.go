package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier names which account and key slot a signature claims to
// come from. On the wire it is the ASCII string "<accountName>.<keySlot>",
// the same textual scheme encoded into a passkey's user handle at
// enrollment time. Account names must not contain periods.
type Identifier struct {
	AccountName string
	KeySlot     uint8
}

// ParseIdentifier parses "<accountName>.<keySlot>".
func ParseIdentifier(s string) (Identifier, error) {
	name, slotStr, ok := strings.Cut(s, ".")
	if !ok {
		return Identifier{}, fmt.Errorf("%w: missing key slot in %q", ErrInvalidIdentifier, s)
	}
	if name == "" {
		return Identifier{}, fmt.Errorf("%w: empty account name in %q", ErrInvalidIdentifier, s)
	}
	slot, err := strconv.ParseUint(slotStr, 10, 8)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: key slot %q is not a number in 0-255", ErrInvalidIdentifier, slotStr)
	}
	return Identifier{AccountName: name, KeySlot: uint8(slot)}, nil
}

// String renders the identifier in its wire form.
func (id Identifier) String() string {
	return fmt.Sprintf("%s.%d", id.AccountName, id.KeySlot)
}
