package provision

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

func newDownloader() *Downloader {
	fetcher := NewFetcherFactory(testLogger())
	return NewDownloader(fetcher, NewChecksumVerifier(fetcher, testLogger()), testLogger())
}

func TestDownloadAllVerifiesBeforeReturning(t *testing.T) {
	binary := []byte("binary contents")
	worker := []byte("worker contents")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/polkadot":
			w.Write(binary)
		case "/polkadot-prepare-worker":
			w.Write(worker)
		case "/sha256sums":
			fmt.Fprintf(w, "%s  polkadot\n%s  polkadot-prepare-worker\n", sha256hex(binary), sha256hex(worker))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	plan := InstallationPlan{
		Strategy: StrategyBinarySet,
		Artifacts: []Artifact{
			{URL: srv.URL + "/polkadot", ChecksumURL: srv.URL + "/sha256sums", Destination: "/home/polkadot/polkadot", Mode: 0o755},
			{URL: srv.URL + "/polkadot-prepare-worker", ChecksumURL: srv.URL + "/sha256sums", Destination: "/home/polkadot/polkadot-prepare-worker", Mode: 0o755},
		},
	}

	fetched, err := newDownloader().DownloadAll(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "polkadot", fetched[0].Name)
	assert.Equal(t, binary, fetched[0].Data)
	assert.Equal(t, "polkadot-prepare-worker", fetched[1].Name)
}

func TestDownloadAllChecksumFailureDiscardsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/polkadot":
			w.Write([]byte("binary contents"))
		case "/sha256sums":
			fmt.Fprintf(w, "%s  polkadot\n", sha256hex([]byte("tampered contents")))
		}
	}))
	defer srv.Close()

	plan := InstallationPlan{
		Strategy: StrategySingleBinary,
		Artifacts: []Artifact{
			{URL: srv.URL + "/polkadot", ChecksumURL: srv.URL + "/sha256sums", Destination: "/home/polkadot/polkadot", Mode: 0o755},
		},
	}

	fetched, err := newDownloader().DownloadAll(context.Background(), plan)
	assert.ErrorIs(t, err, interfaces.ErrArtifact)
	assert.Nil(t, fetched)
}

func TestDownloadAllImageExtractHasNothingToFetch(t *testing.T) {
	fetched, err := newDownloader().DownloadAll(context.Background(), InstallationPlan{Strategy: StrategyImageExtract})
	require.NoError(t, err)
	assert.Empty(t, fetched)
}

func TestDownloadWasmRuntime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wasm archive"))
	}))
	defer srv.Close()

	t.Run("configured", func(t *testing.T) {
		art, ok, err := newDownloader().DownloadWasmRuntime(context.Background(),
			InstallationPlan{WasmRuntimeURL: srv.URL + "/runtimes.tar.gz"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "runtimes.tar.gz", art.Name)
		assert.Equal(t, []byte("wasm archive"), art.Data)
	})

	t.Run("not configured", func(t *testing.T) {
		_, ok, err := newDownloader().DownloadWasmRuntime(context.Background(), InstallationPlan{})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDownloadChainSpecs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"spec":"%s"}`, r.URL.Path)
	}))
	defer srv.Close()

	layout := testLayout()
	layout.ChainSpecDir = t.TempDir()

	specs, err := newDownloader().DownloadChainSpecs(context.Background(), Config{
		ChainSpecURL:      srv.URL + "/statemint.json",
		RelaychainSpecURL: srv.URL + "/polkadot.json",
	}, layout)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(layout.ChainSpecDir, "chain-spec.json"), specs.ChainSpecPath)
	assert.Equal(t, filepath.Join(layout.ChainSpecDir, "relaychain-spec.json"), specs.RelaychainSpecPath)
	assert.FileExists(t, specs.ChainSpecPath)
	assert.FileExists(t, specs.RelaychainSpecPath)
}

func TestDownloadChainSpecsNotConfigured(t *testing.T) {
	specs, err := newDownloader().DownloadChainSpecs(context.Background(), Config{}, testLayout())
	require.NoError(t, err)
	assert.Empty(t, specs.ChainSpecPath)
	assert.Empty(t, specs.RelaychainSpecPath)
}
