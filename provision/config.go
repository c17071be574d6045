package provision

import "strings"

// Config is the configuration surface consumed by the resolver, as handed
// down by the orchestration layer. Absent values are empty strings, never
// null; URL lists are space separated, matching the upstream configuration
// format.
type Config struct {
	// BinaryURL is one or more artifact URLs. Multiple URLs form a
	// relaychain-style multi-binary set.
	BinaryURL string

	// SHA256URL is zero, one, or per-artifact checksum listing URLs. One
	// listing may cover all artifacts; otherwise the count must match
	// BinaryURL positionally.
	SHA256URL string

	// DockerTag selects container-image extraction, either via a chain
	// alias or directly.
	DockerTag string

	// ServiceArgs is the operator's free-form argument string.
	ServiceArgs string

	// ChainSpecURL and RelaychainSpecURL override the chain identifier
	// tokens with downloaded spec files.
	ChainSpecURL      string
	RelaychainSpecURL string

	// WasmRuntimeURL, when set, is fetched into the wasm override
	// directory.
	WasmRuntimeURL string
}

// BinaryURLs returns the artifact URL list.
func (c Config) BinaryURLs() []string {
	return strings.Fields(c.BinaryURL)
}

// SHA256URLs returns the checksum URL list.
func (c Config) SHA256URLs() []string {
	return strings.Fields(c.SHA256URL)
}
