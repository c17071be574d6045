// Package sessionkeys manages the cryptographic session-key lifecycle of a
// validating or collating node: rotation, insertion, keystore checks, and
// validator-address discovery. All key state lives inside the running node;
// this package never persists key material and only talks to the node
// through the narrow RPC capability interface.
package sessionkeys

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// auraKeyType is the keystore slot inserted keys go into.
const auraKeyType = "aura"

// Manager performs the session-key operations exposed to the operator.
type Manager struct {
	rpc    interfaces.NodeRPC
	signer interfaces.ExtrinsicSigner
	log    *slog.Logger
}

// NewManager creates a manager. signer may be nil when start-validating is
// not used, e.g. on non-validator nodes.
func NewManager(rpc interfaces.NodeRPC, signer interfaces.ExtrinsicSigner, log *slog.Logger) *Manager {
	return &Manager{rpc: rpc, signer: signer, log: log}
}

// Rotate asks the node for a brand-new session key and returns its public
// identifier.
func (m *Manager) Rotate(ctx context.Context) (interfaces.SessionKey, error) {
	key, err := m.rpc.RotateKeys(ctx)
	if err != nil {
		return "", err
	}
	m.log.Info("Rotated session keys", slog.String("key", key.String()))
	return key, nil
}

// Has reports whether the node's local keystore holds the given key. A key
// the node does not have is a negative result, not an error. The key format
// is checked before any RPC call is made.
func (m *Manager) Has(ctx context.Context, key string) (bool, error) {
	parsed, err := interfaces.NewSessionKey(key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
	}
	return m.rpc.HasSessionKeys(ctx, parsed)
}

// Insert puts a keypair derived from the mnemonic into the node's keystore.
// The caller must never reuse a key across two concurrently running nodes;
// no uniqueness check is possible from here, which makes reuse an
// operational hazard, not a detected error.
func (m *Manager) Insert(ctx context.Context, mnemonic, address string) error {
	if mnemonic == "" {
		return fmt.Errorf("%w: mnemonic must not be empty", interfaces.ErrConfiguration)
	}
	addr, err := interfaces.NewAddress(address)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
	}
	if err := m.rpc.InsertKey(ctx, auraKeyType, mnemonic, addr); err != nil {
		return err
	}
	m.log.Info("Inserted key into keystore", slog.String("address", addr.String()))
	return nil
}

// FindValidatorAddress scans the chain's queued key assignments and returns
// the validator address whose session keys are present in this node's
// keystore, if any.
func (m *Manager) FindValidatorAddress(ctx context.Context) (interfaces.Address, bool, error) {
	assignments, err := m.rpc.QueuedKeys(ctx)
	if err != nil {
		return "", false, err
	}
	for _, a := range assignments {
		ok, err := m.rpc.HasSessionKeys(ctx, a.Keys)
		if err != nil {
			return "", false, err
		}
		if ok {
			return a.Validator, true, nil
		}
	}
	return "", false, nil
}

// IsValidatingNextEra reports whether the session key scheduled for the
// given address in the upcoming era is present in this node's keystore.
func (m *Manager) IsValidatingNextEra(ctx context.Context, address string) (bool, error) {
	addr, err := interfaces.NewAddress(address)
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
	}

	assignments, err := m.rpc.QueuedKeys(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if a.Validator != addr {
			continue
		}
		return m.rpc.HasSessionKeys(ctx, a.Keys)
	}
	return false, nil
}

// StartResult reports what start-validating submitted.
type StartResult struct {
	Address interfaces.Address    `json:"address"`
	Key     interfaces.SessionKey `json:"sessionKey"`
}

// StartValidating rotates a fresh session key and submits the extrinsic
// binding it to the target address. With an empty address the one derived
// from the configured signing secret is used. A successful submission does
// not mean the binding took effect; that is delayed until the era boundary
// and should be verified later with IsValidatingNextEra.
func (m *Manager) StartValidating(ctx context.Context, address string) (StartResult, error) {
	var target interfaces.Address
	var err error
	if address == "" {
		if m.signer == nil {
			return StartResult{}, fmt.Errorf("%w: no signing secret configured and no target address given",
				interfaces.ErrConfiguration)
		}
		target, err = m.signer.SignerAddress()
		if err != nil {
			return StartResult{}, fmt.Errorf("%w: deriving signer address: %v", interfaces.ErrConfiguration, err)
		}
	} else {
		target, err = interfaces.NewAddress(address)
		if err != nil {
			return StartResult{}, fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
		}
	}

	key, err := m.Rotate(ctx)
	if err != nil {
		return StartResult{}, err
	}

	if err := m.rpc.SubmitSetKeys(ctx, target, key); err != nil {
		return StartResult{}, err
	}

	m.log.Info("Submitted set-keys extrinsic; the binding takes effect at the era boundary",
		slog.String("address", target.String()))
	return StartResult{Address: target, Key: key}, nil
}
