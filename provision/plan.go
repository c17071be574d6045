// Package provision turns declarative node configuration into a concrete,
// checksum-verified installation plan and downloads the artifacts the plan
// names. It never touches the final installation paths; executing a plan is
// the installer package's job.
package provision

import (
	"os"
)

// Strategy is the single installation strategy chosen for a provisioning
// run. The cases are mutually exclusive; the resolver picks exactly one.
type Strategy int

const (
	// StrategySingleBinary places one bare executable at the configured
	// binary path.
	StrategySingleBinary Strategy = iota

	// StrategyBinarySet places a relaychain-style main binary plus named
	// worker binaries as siblings in the binary directory.
	StrategyBinarySet

	// StrategyArchive extracts the executable from a tar.gz archive.
	StrategyArchive

	// StrategyDebPackage installs a .deb via the system package manager and
	// links the installed executable to the binary path.
	StrategyDebPackage

	// StrategyImageExtract pulls a container image and copies the executable
	// (and optionally a bundled chain spec) out of it.
	StrategyImageExtract
)

func (s Strategy) String() string {
	switch s {
	case StrategySingleBinary:
		return "single-binary"
	case StrategyBinarySet:
		return "binary-set"
	case StrategyArchive:
		return "archive"
	case StrategyDebPackage:
		return "deb-package"
	case StrategyImageExtract:
		return "image-extract"
	}
	return "unknown"
}

// Artifact is one remote object the plan needs: its source URL, the checksum
// source covering it (empty when unverified), and where the installed result
// must end up.
type Artifact struct {
	URL         string
	ChecksumURL string
	Destination string
	Mode        os.FileMode
}

// ImageExtraction describes what to pull out of a container image.
type ImageExtraction struct {
	// Image is the repository, without tag.
	Image string
	// Tag is the configured image tag.
	Tag string
	// BinaryPath is the executable's path inside the image.
	BinaryPath string
	// SpecPath is the bundled chain-spec path inside the image; empty when
	// the image carries no spec.
	SpecPath string
}

// InstallationPlan is the resolver's output: exactly one strategy with the
// artifacts or image extraction it requires. A plan is inert data; applying
// it is the installer's job, which allows dry inspection and testing without
// filesystem effects.
type InstallationPlan struct {
	Strategy Strategy

	// Artifacts to download, in order. Empty for image extraction.
	Artifacts []Artifact

	// Image is set only for StrategyImageExtract.
	Image ImageExtraction

	// ChainSpecDestination is where an alias-triggered extraction places the
	// bundled chain spec. The service-argument builder substitutes it for
	// the alias token. Empty for every other strategy.
	ChainSpecDestination string

	// WasmRuntimeURL, when set, is fetched into the wasm override directory
	// regardless of strategy.
	WasmRuntimeURL string
}
