package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// Fixed filenames inside the chain-spec directory. The argument builder
// substitutes these paths for the chain identifier tokens.
const (
	chainSpecFilename = "chain-spec.json"
	relaySpecFilename = "relaychain-spec.json"
)

// ResolvedSpecs are the local chain-spec paths produced for the argument
// builder. Empty fields mean the corresponding URL was not configured.
type ResolvedSpecs struct {
	ChainSpecPath      string
	RelaychainSpecPath string
}

// DownloadChainSpecs fetches the configured chain-spec and local
// relaychain-spec files into the spec directory and returns their paths.
func (d *Downloader) DownloadChainSpecs(ctx context.Context, cfg Config, layout interfaces.Layout) (ResolvedSpecs, error) {
	var specs ResolvedSpecs
	if cfg.ChainSpecURL == "" && cfg.RelaychainSpecURL == "" {
		return specs, nil
	}

	if err := os.MkdirAll(layout.ChainSpecDir, 0o755); err != nil {
		return specs, fmt.Errorf("%w: creating spec directory: %v", interfaces.ErrInstallation, err)
	}

	if cfg.ChainSpecURL != "" {
		dest := filepath.Join(layout.ChainSpecDir, chainSpecFilename)
		if err := d.fetcher.FetchToFile(ctx, cfg.ChainSpecURL, dest); err != nil {
			return specs, fmt.Errorf("downloading chain spec: %w", err)
		}
		specs.ChainSpecPath = dest
	}
	if cfg.RelaychainSpecURL != "" {
		dest := filepath.Join(layout.ChainSpecDir, relaySpecFilename)
		if err := d.fetcher.FetchToFile(ctx, cfg.RelaychainSpecURL, dest); err != nil {
			return specs, fmt.Errorf("downloading relaychain spec: %w", err)
		}
		specs.RelaychainSpecPath = dest
	}
	return specs, nil
}
