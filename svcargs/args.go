// Package svcargs composes the final ordered argument vector for the node
// process from the operator's free-form argument string, relation-supplied
// RPC endpoints, and resolved chain-spec paths.
//
// Build is a pure function: identical inputs always yield the identical
// token sequence, so it can be re-run on every configuration change without
// accumulating duplicate flags.
package svcargs

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

const (
	chainFlag     = "--chain"
	rpcPortFlag   = "--rpc-port"
	relayURLsFlag = "--relay-chain-rpc-urls"
	nodeKeyFlag   = "--node-key-file"
	wasmFlag      = "--wasm-runtime-overrides"

	// separator splits parachain arguments (left) from relaychain arguments
	// (right) on a parachain node's command line.
	separator = "--"
)

// splitter accepts both "--key value" and "--key=value" forms.
var splitter = regexp.MustCompile(` +|=`)

// Args is a parsed, validated service argument string.
type Args struct {
	tokens []string
}

// Parse tokenizes and validates the operator's argument string. --chain and
// --rpc-port must be present; --prometheus-port and --node-key-file must
// not be, since the manager owns those.
func Parse(serviceArgs string) (Args, error) {
	tokens := tokenize(serviceArgs)

	var msg string
	switch {
	case !contains(tokens, chainFlag):
		msg = "'--chain' must be set in service-args"
	case !contains(tokens, rpcPortFlag):
		msg = "'--rpc-port' must be set in service-args"
	case contains(tokens, "--prometheus-port"):
		msg = "'--prometheus-port' may not be set; the default port 9615 is assumed"
	case contains(tokens, nodeKeyFlag):
		msg = "'--node-key-file' may not be set; the node key path is managed for you"
	}
	if msg != "" {
		return Args{}, fmt.Errorf("%w: %s", interfaces.ErrConfiguration, msg)
	}
	return Args{tokens: tokens}, nil
}

func tokenize(s string) []string {
	var tokens []string
	for _, t := range splitter.Split(s, -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func contains(tokens []string, flag string) bool {
	for _, t := range tokens {
		if t == flag {
			return true
		}
	}
	return false
}

// valueOf returns the token following the first occurrence of flag.
func (a Args) valueOf(flag string) string {
	for i, t := range a.tokens {
		if t == flag && i+1 < len(a.tokens) {
			return a.tokens[i+1]
		}
	}
	return ""
}

// ChainName is the current value of the --chain token, used for alias
// resolution.
func (a Args) ChainName() string { return a.valueOf(chainFlag) }

// RPCPort is the configured RPC port the local node listens on.
func (a Args) RPCPort() string { return a.valueOf(rpcPortFlag) }

// IsValidator reports whether the node runs as a validator or collator.
func (a Args) IsValidator() bool {
	return contains(a.tokens, "--validator") || contains(a.tokens, "--collator")
}

// Inputs are the resolved values Build composes into the final vector.
type Inputs struct {
	// RelayEndpoints are relation-supplied RPC endpoint URLs with their
	// arrival order. They are always preferred over manually configured
	// endpoints, which remain as trailing fallbacks.
	RelayEndpoints []interfaces.RelayEndpoint

	// ChainSpecPath replaces the --chain value left of the relaychain
	// separator when set.
	ChainSpecPath string

	// RelaychainSpecPath replaces the --chain value right of the separator
	// when set.
	RelaychainSpecPath string

	// WasmOverrideDir enables the wasm runtime override flag when set.
	WasmOverrideDir string

	// NodeKeyFile is the managed network identity key path, always added.
	NodeKeyFile string
}

// Build returns the final ordered argument vector.
func (a Args) Build(in Inputs) []string {
	tokens := make([]string, len(a.tokens))
	copy(tokens, a.tokens)

	tokens = prepend(tokens, nodeKeyFlag, in.NodeKeyFile)
	tokens = mergeRelayEndpoints(tokens, in.RelayEndpoints)

	if in.ChainSpecPath != "" {
		tokens = setChainValue(tokens, in.ChainSpecPath, 0)
	}
	if in.RelaychainSpecPath != "" {
		tokens = setChainValue(tokens, in.RelaychainSpecPath, 1)
	}
	if in.WasmOverrideDir != "" {
		tokens = prepend(tokens, wasmFlag, in.WasmOverrideDir)
	}
	return tokens
}

// BuildString is Build joined into the environment-file form the service
// unit consumes.
func (a Args) BuildString(in Inputs) string {
	return strings.Join(a.Build(in), " ")
}

func prepend(tokens []string, args ...string) []string {
	return append(append([]string{}, args...), tokens...)
}

// mergeRelayEndpoints prepends relation-supplied endpoints, in arrival
// order, ahead of any manually configured endpoint values so discovered
// endpoints are always preferred and manual ones serve as fallbacks.
func mergeRelayEndpoints(tokens []string, endpoints []interfaces.RelayEndpoint) []string {
	if len(endpoints) == 0 {
		return tokens
	}

	ordered := make([]interfaces.RelayEndpoint, len(endpoints))
	copy(ordered, endpoints)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	urls := make([]string, 0, len(ordered))
	for _, e := range ordered {
		urls = append(urls, e.URL)
	}

	// Pull out any manually configured endpoint list so it trails the
	// relation-supplied ones.
	var manual []string
	for i, t := range tokens {
		if t != relayURLsFlag {
			continue
		}
		j := i + 1
		for j < len(tokens) && tokens[j] != separator && !strings.HasPrefix(tokens[j], "--") {
			manual = append(manual, tokens[j])
			j++
		}
		tokens = append(append([]string{}, tokens[:i]...), tokens[j:]...)
		break
	}

	args := append([]string{relayURLsFlag}, urls...)
	args = append(args, manual...)
	return append(args, tokens...)
}

// setChainValue rewrites the value of the --chain occurrence at the given
// position (0 = left of the relaychain separator, 1 = right of it), adding
// the flag when the position does not exist yet.
func setChainValue(tokens []string, value string, position int) []string {
	seen := 0
	for i, t := range tokens {
		if t != chainFlag {
			continue
		}
		if seen == position {
			out := make([]string, len(tokens))
			copy(out, tokens)
			if i+1 < len(out) {
				out[i+1] = value
			} else {
				out = append(out, value)
			}
			return out
		}
		seen++
	}

	if position == 0 {
		return prepend(tokens, chainFlag, value)
	}
	if !contains(tokens, separator) {
		tokens = append(tokens, separator)
	}
	return append(tokens, chainFlag, value)
}
