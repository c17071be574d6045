package provision

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChainAlias maps a user-facing chain name to the container image that
// carries its executable and, for some chains, a bundled chain-spec file.
type ChainAlias struct {
	Image      string `yaml:"image"`
	BinaryPath string `yaml:"binary-path"`
	SpecPath   string `yaml:"spec-path,omitempty"`
}

// AliasTable resolves chain names to image extractions. It is immutable
// after load and safe for concurrent reads.
type AliasTable map[string]ChainAlias

// Lookup returns the alias for a chain name.
func (t AliasTable) Lookup(chain string) (ChainAlias, bool) {
	a, ok := t[chain]
	return a, ok
}

// SpecDestination returns where the bundled chain-spec file lands in specDir
// after an image extraction, or "" when the alias carries no spec. The
// argument builder substitutes this path for the literal chain name, so it
// must agree with where the installer places the file.
func (a ChainAlias) SpecDestination(specDir string) string {
	if a.SpecPath == "" {
		return ""
	}
	return filepath.Join(specDir, path.Base(a.SpecPath))
}

// LoadAliasTable reads a YAML alias table from path. A missing file is not
// an error; the built-in table is returned so deployments without custom
// aliases keep working.
func LoadAliasTable(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultAliases(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading alias table: %w", err)
	}

	table := DefaultAliases()
	var custom AliasTable
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("parsing alias table: %w", err)
	}
	for name, alias := range custom {
		if alias.Image == "" || alias.BinaryPath == "" {
			return nil, fmt.Errorf("alias %q must set image and binary-path", name)
		}
		table[name] = alias
	}
	return table, nil
}

// DefaultAliases is the built-in chain-name table. Entries are additive
// only; removing one breaks deployed configurations that still name it.
func DefaultAliases() AliasTable {
	return AliasTable{
		"spiritnet":          {Image: "kiltprotocol/kilt-node", BinaryPath: "/usr/local/bin/node-executable", SpecPath: "/node/dev-specs/kilt-parachain/peregrine-kilt.json"},
		"peregrine":          {Image: "kiltprotocol/kilt-node", BinaryPath: "/usr/local/bin/node-executable", SpecPath: "/node/dev-specs/kilt-parachain/peregrine-kilt.json"},
		"peregrine-stg-kilt": {Image: "kiltprotocol/kilt-node", BinaryPath: "/usr/local/bin/node-executable", SpecPath: "/node/dev-specs/kilt-parachain/peregrine-stg-kilt.json"},
		"centrifuge":         {Image: "centrifugeio/centrifuge-chain", BinaryPath: "/usr/local/bin/centrifuge-chain"},
		"altair":             {Image: "centrifugeio/centrifuge-chain", BinaryPath: "/usr/local/bin/centrifuge-chain"},
		"nodle":              {Image: "nodlecode/chain", BinaryPath: "/usr/local/bin/nodle-parachain"},
		"eden":               {Image: "nodlecode/chain", BinaryPath: "/usr/local/bin/nodle-parachain"},
		"acala":              {Image: "acala/acala-node", BinaryPath: "/usr/local/bin/acala"},
		"karura":             {Image: "acala/karura-node", BinaryPath: "/usr/local/bin/acala"},
		"astar":              {Image: "staketechnologies/astar-collator", BinaryPath: "/usr/local/bin/astar-collator"},
		"shiden":             {Image: "staketechnologies/astar-collator", BinaryPath: "/usr/local/bin/astar-collator"},
		"shibuya":            {Image: "staketechnologies/astar-collator", BinaryPath: "/usr/local/bin/astar-collator"},
		"darwinia":           {Image: "ghcr.io/darwinia-network/darwinia", BinaryPath: "/home/darwinia/darwinia-nodes/darwinia"},
		"crab":               {Image: "ghcr.io/darwinia-network/darwinia", BinaryPath: "/home/darwinia/darwinia-nodes/darwinia"},
		"moonbeam":           {Image: "purestake/moonbeam", BinaryPath: "/moonbeam/moonbeam"},
		"moonriver":          {Image: "purestake/moonbeam", BinaryPath: "/moonbeam/moonbeam"},
		"zeitgeist":          {Image: "zeitgeistpm/zeitgeist-node-parachain", BinaryPath: "/usr/local/bin/zeitgeist"},
		"parallel":           {Image: "parallelfinance/parallel", BinaryPath: "/usr/local/bin/parallel"},
		"heiko":              {Image: "parallelfinance/parallel", BinaryPath: "/usr/local/bin/parallel"},
		"turing":             {Image: "oaknetwork/turing", BinaryPath: "/oak/oak-collator"},
		"joystream":          {Image: "joystream/node", BinaryPath: "/joystream/node"},
		"aleph-zero-mainnet": {Image: "public.ecr.aws/p6e8q1z1/aleph-node", BinaryPath: "/usr/local/bin/aleph-node"},
		"aleph-zero-testnet": {Image: "public.ecr.aws/p6e8q1z1/aleph-node", BinaryPath: "/usr/local/bin/aleph-node"},
		"equilibrium":        {Image: "equilab/eq-para", BinaryPath: "/usr/local/bin/paranode", SpecPath: "/etc/chainspec.json"},
		"pendulum":           {Image: "pendulumchain/pendulum-collator", BinaryPath: "/usr/local/bin/pendulum-collator"},
		"amplitude":          {Image: "pendulumchain/pendulum-collator", BinaryPath: "/usr/local/bin/pendulum-collator"},
	}
}
