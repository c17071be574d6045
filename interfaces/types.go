// Package interfaces defines the core interfaces and types shared by the
// node lifecycle manager's components. It provides the contract between
// provisioning, installation, migration and session-key management without
// implementation details.
package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SessionKey is the hex-encoded concatenation of the public session keys a
// node produced via a rotate call. The key material itself is opaque to this
// manager; it is only ever passed through RPC calls.
type SessionKey string

// NewSessionKey validates hex key material. The 0x prefix is required since
// that is how the node returns rotated keys.
func NewSessionKey(s string) (SessionKey, error) {
	if !strings.HasPrefix(s, "0x") {
		return "", errors.New("session key must be 0x-prefixed hex")
	}
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) == 0 || len(raw)%2 != 0 {
		return "", errors.New("session key has invalid hex length")
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("session key is not valid hex: %w", err)
	}
	return SessionKey(s), nil
}

// Bytes returns the decoded key material.
func (k SessionKey) Bytes() []byte {
	raw, _ := hex.DecodeString(strings.TrimPrefix(string(k), "0x"))
	return raw
}

func (k SessionKey) String() string { return string(k) }

// ss58Prefix is the checksum preimage prefix defined by the SS58 format.
var ss58Prefix = []byte("SS58PRE")

// Address is an SS58-encoded account address of a validator or collator.
type Address string

// NewAddress decodes and checksum-validates an SS58 address string. Only the
// format is verified; no assumption is made about the network prefix, since
// the manager operates nodes of many different chains.
func NewAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid base58 address: %w", err)
	}
	// 1 or 2 prefix bytes, 32-byte public key, 2-byte checksum.
	if len(raw) != 35 && len(raw) != 36 {
		return "", errors.New("invalid address length")
	}
	body := raw[:len(raw)-2]
	checksum := raw[len(raw)-2:]

	hasher, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	hasher.Write(ss58Prefix)
	hasher.Write(body)
	digest := hasher.Sum(nil)
	if digest[0] != checksum[0] || digest[1] != checksum[1] {
		return "", errors.New("address checksum mismatch")
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// Backend identifies one of the mutually exclusive ways the node executable
// is installed and run.
type Backend string

const (
	// BackendBinary is the raw-binary layout under the node user's home.
	BackendBinary Backend = "binary"
	// BackendSnap is the packaged-runtime layout under the snap common dir.
	BackendSnap Backend = "snap"
)

// ParseBackend validates a backend tag supplied by an operator.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendBinary, BackendSnap:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// RelayEndpoint is one relation-supplied RPC endpoint URL together with its
// relation arrival order. Earlier arrivals are preferred over later ones and
// over any manually configured endpoint.
type RelayEndpoint struct {
	URL   string
	Order int
}
