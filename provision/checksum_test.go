package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func listingServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyAllSingleListing(t *testing.T) {
	binary := []byte("binary contents")
	worker := []byte("worker contents")

	srv := listingServer(t, map[string]string{
		"/sha256sums": fmt.Sprintf("%s  polkadot\n%s *polkadot-prepare-worker\n",
			sha256hex(binary), sha256hex(worker)),
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
		{Name: "polkadot-prepare-worker", Data: worker},
	}, []string{srv.URL + "/sha256sums"})

	assert.NoError(t, err)
}

func TestVerifyAllUnnamedHash(t *testing.T) {
	binary := []byte("binary contents")
	srv := listingServer(t, map[string]string{
		"/polkadot.sha256": sha256hex(binary) + "\n",
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
	}, []string{srv.URL + "/polkadot.sha256"})

	assert.NoError(t, err)
}

func TestVerifyAllPositional(t *testing.T) {
	binary := []byte("binary contents")
	worker := []byte("worker contents")

	srv := listingServer(t, map[string]string{
		"/a.sha256": sha256hex(binary) + "  polkadot\n",
		"/b.sha256": sha256hex(worker) + "  polkadot-prepare-worker\n",
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
		{Name: "polkadot-prepare-worker", Data: worker},
	}, []string{srv.URL + "/a.sha256", srv.URL + "/b.sha256"})

	assert.NoError(t, err)
}

func TestVerifyAllMismatch(t *testing.T) {
	binary := []byte("binary contents")
	srv := listingServer(t, map[string]string{
		"/sha256sums": sha256hex([]byte("different contents")) + "  polkadot\n",
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
	}, []string{srv.URL + "/sha256sums"})

	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrArtifact)
	assert.Contains(t, err.Error(), "wrong sha256")
}

func TestVerifyAllMissingEntry(t *testing.T) {
	binary := []byte("binary contents")
	srv := listingServer(t, map[string]string{
		"/sha256sums": sha256hex(binary) + "  some-other-file\n" + sha256hex(binary) + "  another-file\n",
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
	}, []string{srv.URL + "/sha256sums"})

	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrArtifact)
	assert.Contains(t, err.Error(), "no checksum entry")
}

func TestVerifyAllOversizedListing(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"/sha256sums": strings.Repeat("x", maxChecksumListingSize+1),
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: []byte("binary contents")},
	}, []string{srv.URL + "/sha256sums"})

	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrArtifact)
	assert.Contains(t, err.Error(), "larger than 1KiB")
}

func TestVerifyAllNoChecksums(t *testing.T) {
	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: []byte("anything")},
	}, nil)
	assert.NoError(t, err)
}

func TestVerifyAllCountMismatch(t *testing.T) {
	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "a"}, {Name: "b"}, {Name: "c"},
	}, []string{"https://a.example/1", "https://a.example/2"})
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}

func TestVerifyAllUppercaseDigest(t *testing.T) {
	binary := []byte("binary contents")
	srv := listingServer(t, map[string]string{
		"/sha256sums": strings.ToUpper(sha256hex(binary)) + "  polkadot\n",
	})

	v := NewChecksumVerifier(NewFetcherFactory(testLogger()), testLogger())
	err := v.VerifyAll(context.Background(), []Downloaded{
		{Name: "polkadot", Data: binary},
	}, []string{srv.URL + "/sha256sums"})

	assert.NoError(t, err)
}

func TestParseListing(t *testing.T) {
	entries := parseListing("abc123  polkadot\ndef456 *polkadot-worker\n\n789fff\n")
	assert.Equal(t, map[string]string{
		"polkadot":        "abc123",
		"polkadot-worker": "def456",
		"":                "789fff",
	}, entries)
}
