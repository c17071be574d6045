package provision

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// Resolver turns configuration into a single InstallationPlan. Strategy
// priority:
//
//  1. The chain name matches a known alias: extract executable and bundled
//     chain spec from the aliased image.
//  2. A container image tag is configured: extract the executable from that
//     image, no chain-spec extraction.
//  3. Artifact URLs are fetched directly; the filename extension picks
//     package-manager install (.deb), archive extraction (.tar.gz/.tgz),
//     or bare binaries. Multiple URLs form a multi-binary sibling set.
//
// Ambiguous configuration fails with a configuration error rather than
// guessing.
type Resolver struct {
	aliases AliasTable
	layout  interfaces.Layout
	log     *slog.Logger
}

// NewResolver creates a resolver over an immutable alias table.
func NewResolver(aliases AliasTable, layout interfaces.Layout, log *slog.Logger) *Resolver {
	return &Resolver{aliases: aliases, layout: layout, log: log}
}

// Resolve produces the installation plan for the given configuration.
// chainName is the current value of the --chain token, used for alias
// lookup.
func (r *Resolver) Resolve(cfg Config, chainName string) (InstallationPlan, error) {
	urls := cfg.BinaryURLs()
	sums := cfg.SHA256URLs()

	if len(urls) > 0 && cfg.DockerTag != "" {
		return InstallationPlan{}, fmt.Errorf("%w: only one of binary-url and docker-tag can be set at the same time",
			interfaces.ErrConfiguration)
	}

	if cfg.DockerTag != "" {
		plan, err := r.resolveImage(cfg, chainName)
		if err != nil {
			return InstallationPlan{}, err
		}
		plan.WasmRuntimeURL = cfg.WasmRuntimeURL
		return plan, nil
	}

	if len(urls) == 0 {
		return InstallationPlan{}, fmt.Errorf("%w: either binary-url or docker-tag must be set",
			interfaces.ErrConfiguration)
	}
	if len(sums) > 1 && len(sums) != len(urls) {
		return InstallationPlan{}, fmt.Errorf("%w: %d sha256 urls for %d binary urls; provide one listing or one url per binary",
			interfaces.ErrConfiguration, len(sums), len(urls))
	}

	plan, err := r.resolveArtifacts(urls, sums)
	if err != nil {
		return InstallationPlan{}, err
	}
	plan.WasmRuntimeURL = cfg.WasmRuntimeURL

	r.log.Debug("Resolved installation plan",
		slog.String("strategy", plan.Strategy.String()),
		slog.Int("artifacts", len(plan.Artifacts)))
	return plan, nil
}

func (r *Resolver) resolveImage(cfg Config, chainName string) (InstallationPlan, error) {
	if alias, ok := r.aliases.Lookup(chainName); ok {
		plan := InstallationPlan{
			Strategy: StrategyImageExtract,
			Image: ImageExtraction{
				Image:      alias.Image,
				Tag:        cfg.DockerTag,
				BinaryPath: alias.BinaryPath,
				SpecPath:   alias.SpecPath,
			},
		}
		plan.ChainSpecDestination = alias.SpecDestination(r.layout.ChainSpecDir)
		r.log.Debug("Resolved chain alias",
			slog.String("chain", chainName),
			slog.String("image", alias.Image))
		return plan, nil
	}

	// No alias: the tag must carry the full image reference.
	image, tag, ok := strings.Cut(cfg.DockerTag, ":")
	if !ok || image == "" || tag == "" {
		return InstallationPlan{}, fmt.Errorf("%w: chain %q has no image alias; docker-tag must then be a full image reference (repository:tag)",
			interfaces.ErrConfiguration, chainName)
	}
	return InstallationPlan{
		Strategy: StrategyImageExtract,
		Image: ImageExtraction{
			Image:      image,
			Tag:        tag,
			BinaryPath: "/usr/local/bin/" + path.Base(image),
		},
	}, nil
}

func (r *Resolver) resolveArtifacts(urls, sums []string) (InstallationPlan, error) {
	sumFor := func(i int) string {
		switch {
		case len(sums) == 0:
			return ""
		case len(sums) == 1:
			return sums[0]
		default:
			return sums[i]
		}
	}

	first := Basename(urls[0])
	switch {
	case strings.HasSuffix(first, ".deb"):
		if len(urls) > 1 {
			return InstallationPlan{}, fmt.Errorf("%w: multiple urls are only supported for bare binary sets, not .deb packages",
				interfaces.ErrConfiguration)
		}
		return InstallationPlan{
			Strategy: StrategyDebPackage,
			Artifacts: []Artifact{
				{URL: urls[0], ChecksumURL: sumFor(0), Destination: r.layout.BinaryPath, Mode: 0o755},
			},
		}, nil

	case strings.HasSuffix(first, ".tar.gz") || strings.HasSuffix(first, ".tgz"):
		if len(urls) > 1 {
			return InstallationPlan{}, fmt.Errorf("%w: multiple urls are only supported for bare binary sets, not archives",
				interfaces.ErrConfiguration)
		}
		return InstallationPlan{
			Strategy: StrategyArchive,
			Artifacts: []Artifact{
				{URL: urls[0], ChecksumURL: sumFor(0), Destination: r.layout.BinaryPath, Mode: 0o755},
			},
		}, nil

	case len(urls) > 1:
		// Relaychain-style set: main binary plus named worker siblings.
		artifacts := make([]Artifact, 0, len(urls))
		for i, u := range urls {
			dest := r.layout.BinaryPath
			if i > 0 {
				dest = filepath.Join(r.layout.BinaryDir(), Basename(u))
			}
			artifacts = append(artifacts, Artifact{
				URL:         u,
				ChecksumURL: sumFor(i),
				Destination: dest,
				Mode:        0o755,
			})
		}
		return InstallationPlan{Strategy: StrategyBinarySet, Artifacts: artifacts}, nil

	default:
		return InstallationPlan{
			Strategy: StrategySingleBinary,
			Artifacts: []Artifact{
				{URL: urls[0], ChecksumURL: sumFor(0), Destination: r.layout.BinaryPath, Mode: 0o755},
			},
		}, nil
	}
}
