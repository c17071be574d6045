package svcargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{
			name: "minimal valid",
			args: "--chain polkadot --rpc-port 9944",
		},
		{
			name: "equals form accepted",
			args: "--chain=kusama --rpc-port=9933",
		},
		{
			name:    "missing chain",
			args:    "--rpc-port 9944",
			wantErr: "'--chain' must be set",
		},
		{
			name:    "missing rpc port",
			args:    "--chain polkadot",
			wantErr: "'--rpc-port' must be set",
		},
		{
			name:    "prometheus port forbidden",
			args:    "--chain polkadot --rpc-port 9944 --prometheus-port 9615",
			wantErr: "'--prometheus-port' may not be set",
		},
		{
			name:    "node key file forbidden",
			args:    "--chain polkadot --rpc-port 9944 --node-key-file /tmp/key",
			wantErr: "'--node-key-file' may not be set",
		},
		{
			name:    "empty string",
			args:    "",
			wantErr: "'--chain' must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, interfaces.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAccessors(t *testing.T) {
	args, err := Parse("--chain polkadot --rpc-port 9944 --validator")
	require.NoError(t, err)

	assert.Equal(t, "polkadot", args.ChainName())
	assert.Equal(t, "9944", args.RPCPort())
	assert.True(t, args.IsValidator())

	collator, err := Parse("--chain=moonbeam --rpc-port=9944 --collator")
	require.NoError(t, err)
	assert.True(t, collator.IsValidator())

	full, err := Parse("--chain polkadot --rpc-port 9944 --pruning 1000")
	require.NoError(t, err)
	assert.False(t, full.IsValidator())
}

func TestBuildPrependsNodeKeyFile(t *testing.T) {
	args, err := Parse("--chain polkadot --rpc-port 9944")
	require.NoError(t, err)

	got := args.Build(Inputs{NodeKeyFile: "/home/polkadot/node-key"})
	assert.Equal(t, []string{
		"--node-key-file", "/home/polkadot/node-key",
		"--chain", "polkadot", "--rpc-port", "9944",
	}, got)
}

func TestBuildRelayEndpointOrdering(t *testing.T) {
	args, err := Parse("--chain statemint --rpc-port 9944")
	require.NoError(t, err)

	got := args.Build(Inputs{
		RelayEndpoints: []interfaces.RelayEndpoint{
			{URL: "wss://z.example", Order: 2},
			{URL: "wss://x.example", Order: 0},
			{URL: "wss://y.example", Order: 1},
		},
		NodeKeyFile: "/k",
	})

	assert.Equal(t, []string{
		"--relay-chain-rpc-urls", "wss://x.example", "wss://y.example", "wss://z.example",
		"--node-key-file", "/k",
		"--chain", "statemint", "--rpc-port", "9944",
	}, got)
}

func TestBuildManualEndpointsTrailRelationOnes(t *testing.T) {
	args, err := Parse("--chain statemint --rpc-port 9944 --relay-chain-rpc-urls wss://manual.example")
	require.NoError(t, err)

	got := args.Build(Inputs{
		RelayEndpoints: []interfaces.RelayEndpoint{{URL: "wss://relation.example", Order: 0}},
		NodeKeyFile:    "/k",
	})

	assert.Equal(t, []string{
		"--relay-chain-rpc-urls", "wss://relation.example", "wss://manual.example",
		"--node-key-file", "/k",
		"--chain", "statemint", "--rpc-port", "9944",
	}, got)
}

func TestBuildChainSpecReplacement(t *testing.T) {
	t.Run("left of separator", func(t *testing.T) {
		args, err := Parse("--chain polkadot --rpc-port 9944")
		require.NoError(t, err)

		got := args.Build(Inputs{ChainSpecPath: "/specs/chain-spec.json", NodeKeyFile: "/k"})
		assert.Equal(t, []string{
			"--node-key-file", "/k",
			"--chain", "/specs/chain-spec.json", "--rpc-port", "9944",
		}, got)
	})

	t.Run("right of separator", func(t *testing.T) {
		args, err := Parse("--chain statemint --rpc-port 9944 -- --chain polkadot")
		require.NoError(t, err)

		got := args.Build(Inputs{
			RelaychainSpecPath: "/specs/relaychain-spec.json",
			NodeKeyFile:        "/k",
		})
		assert.Equal(t, []string{
			"--node-key-file", "/k",
			"--chain", "statemint", "--rpc-port", "9944",
			"--", "--chain", "/specs/relaychain-spec.json",
		}, got)
	})

	t.Run("separator added when missing", func(t *testing.T) {
		args, err := Parse("--chain statemint --rpc-port 9944")
		require.NoError(t, err)

		got := args.Build(Inputs{
			RelaychainSpecPath: "/specs/relaychain-spec.json",
			NodeKeyFile:        "/k",
		})
		assert.Equal(t, []string{
			"--node-key-file", "/k",
			"--chain", "statemint", "--rpc-port", "9944",
			"--", "--chain", "/specs/relaychain-spec.json",
		}, got)
	})
}

func TestBuildWasmOverride(t *testing.T) {
	args, err := Parse("--chain polkadot --rpc-port 9944")
	require.NoError(t, err)

	got := args.Build(Inputs{WasmOverrideDir: "/wasm", NodeKeyFile: "/k"})
	assert.Equal(t, "--wasm-runtime-overrides", got[0])
	assert.Equal(t, "/wasm", got[1])
}

func TestBuildIsPure(t *testing.T) {
	args, err := Parse("--chain statemint --rpc-port 9944 --relay-chain-rpc-urls wss://manual.example")
	require.NoError(t, err)

	in := Inputs{
		RelayEndpoints:     []interfaces.RelayEndpoint{{URL: "wss://b.example", Order: 1}, {URL: "wss://a.example", Order: 0}},
		ChainSpecPath:      "/specs/chain-spec.json",
		RelaychainSpecPath: "/specs/relaychain-spec.json",
		WasmOverrideDir:    "/wasm",
		NodeKeyFile:        "/k",
	}

	first := args.Build(in)
	second := args.Build(in)
	third := args.Build(in)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestBuildString(t *testing.T) {
	args, err := Parse("--chain polkadot --rpc-port 9944")
	require.NoError(t, err)

	got := args.BuildString(Inputs{NodeKeyFile: "/k"})
	assert.Equal(t, "--node-key-file /k --chain polkadot --rpc-port 9944", got)
}
