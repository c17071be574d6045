package noderpc

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// signerTimeout bounds the external signing tool; signing is local work and
// should never block on the network.
const signerTimeout = 30 * time.Second

// CommandSigner produces signed set-keys extrinsics by invoking an external
// signing tool with the configured signing secret. SCALE encoding and
// signature schemes are chain specific, so they stay behind this seam
// instead of being reimplemented here.
//
// The tool contract: `<tool> sign-set-keys <address> <session-key>` with the
// secret on stdin prints the hex-encoded signed extrinsic, and
// `<tool> inspect` with the secret on stdin prints the SS58 address derived
// from it.
type CommandSigner struct {
	// Tool is the signing binary, e.g. a subkey wrapper shipped alongside
	// this manager.
	Tool string

	// Secret is the signing secret handed down by the orchestration layer.
	// It is only ever written to the tool's stdin.
	Secret string
}

// NewCommandSigner creates a signer.
func NewCommandSigner(tool, secret string) (*CommandSigner, error) {
	if tool == "" {
		return nil, fmt.Errorf("%w: signing tool not configured", interfaces.ErrConfiguration)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", interfaces.ErrConfiguration)
	}
	return &CommandSigner{Tool: tool, Secret: secret}, nil
}

func (s *CommandSigner) SignSetKeys(address interfaces.Address, key interfaces.SessionKey) (string, error) {
	out, err := s.run("sign-set-keys", address.String(), key.String())
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(out, "0x") {
		return "", fmt.Errorf("signing tool returned malformed extrinsic %q", out)
	}
	return out, nil
}

func (s *CommandSigner) SignerAddress() (interfaces.Address, error) {
	out, err := s.run("inspect")
	if err != nil {
		return "", err
	}
	return interfaces.NewAddress(out)
}

func (s *CommandSigner) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), signerTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Tool, args...)
	cmd.Stdin = strings.NewReader(s.Secret)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("running %s %s: %w", s.Tool, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

var _ interfaces.ExtrinsicSigner = (*CommandSigner)(nil)
