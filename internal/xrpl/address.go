package xrpl

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for malformed classic addresses.
var ErrInvalidAddress = errors.New("invalid classic address")

var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

const (
	accountIDLength       = 20
	accountVersion        = 0x00
	checksumLength        = 4
	classicAddressByteLen = 1 + accountIDLength + checksumLength
)

// ValidateClassicAddress checks an "r..." account address: alphabet,
// length, version byte and double-SHA256 checksum.
func ValidateClassicAddress(addr string) error {
	if !strings.HasPrefix(addr, "r") {
		return fmt.Errorf("%w: %q must start with 'r'", ErrInvalidAddress, addr)
	}

	decoded, err := base58.DecodeAlphabet(addr, rippleAlphabet)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if len(decoded) != classicAddressByteLen {
		return fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, addr, len(decoded))
	}
	if decoded[0] != accountVersion {
		return fmt.Errorf("%w: %q has version %#x", ErrInvalidAddress, addr, decoded[0])
	}

	payload := decoded[:1+accountIDLength]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:checksumLength], decoded[1+accountIDLength:]) {
		return fmt.Errorf("%w: %q checksum mismatch", ErrInvalidAddress, addr)
	}
	return nil
}
