package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// maxChecksumListingSize rejects checksum sources larger than 1 KiB. A
// bigger response almost always means the operator pasted the artifact URL
// into the checksum field.
const maxChecksumListingSize = 1024

// ChecksumVerifier fetches sha256 listings and matches entries to
// downloaded artifacts by filename.
type ChecksumVerifier struct {
	fetcher *FetcherFactory
	log     *slog.Logger
}

// NewChecksumVerifier creates a verifier sharing the provisioning fetcher.
func NewChecksumVerifier(fetcher *FetcherFactory, log *slog.Logger) *ChecksumVerifier {
	return &ChecksumVerifier{fetcher: fetcher, log: log}
}

// Downloaded pairs an artifact's listing name with its downloaded contents.
type Downloaded struct {
	Name string
	Data []byte
}

// VerifyAll checks every download against the configured checksum URLs.
// With a single URL the listing covers all artifacts and entries are matched
// by filename; with one URL per artifact the pairing is positional. An empty
// checksumURLs slice verifies nothing.
func (v *ChecksumVerifier) VerifyAll(ctx context.Context, downloads []Downloaded, checksumURLs []string) error {
	switch {
	case len(checksumURLs) == 0:
		return nil
	case len(checksumURLs) == 1:
		return v.verifyAgainstListing(ctx, downloads, checksumURLs[0])
	case len(checksumURLs) == len(downloads):
		for i, d := range downloads {
			if err := v.verifyOne(ctx, d, checksumURLs[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %d checksum urls for %d artifacts; provide one listing or one url per artifact",
			interfaces.ErrConfiguration, len(checksumURLs), len(downloads))
	}
}

func (v *ChecksumVerifier) verifyAgainstListing(ctx context.Context, downloads []Downloaded, url string) error {
	listing, err := v.fetchListing(ctx, url)
	if err != nil {
		return err
	}
	entries := parseListing(listing)

	for _, d := range downloads {
		want, ok := entries[d.Name]
		if !ok && len(entries) == 1 && len(downloads) == 1 {
			// Single unnamed hash covering the single artifact.
			for _, h := range entries {
				want, ok = h, true
			}
		}
		if !ok {
			return fmt.Errorf("%w: no checksum entry for %q in %s; was the correct sha256 url provided?",
				interfaces.ErrArtifact, d.Name, url)
		}
		if err := compareDigest(d, want); err != nil {
			return err
		}
		v.log.Debug("Checksum verified", slog.String("artifact", d.Name))
	}
	return nil
}

func (v *ChecksumVerifier) verifyOne(ctx context.Context, d Downloaded, url string) error {
	if url == "" {
		return nil
	}
	listing, err := v.fetchListing(ctx, url)
	if err != nil {
		return err
	}

	fields := strings.Fields(listing)
	if len(fields) == 0 {
		return fmt.Errorf("%w: checksum source %s is empty", interfaces.ErrArtifact, url)
	}
	if err := compareDigest(d, fields[0]); err != nil {
		return err
	}
	v.log.Debug("Checksum verified", slog.String("artifact", d.Name))
	return nil
}

func (v *ChecksumVerifier) fetchListing(ctx context.Context, url string) (string, error) {
	data, err := v.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if len(data) > maxChecksumListingSize {
		return "", fmt.Errorf("%w: checksum source %s is larger than 1KiB; was the correct sha256 url provided?",
			interfaces.ErrArtifact, url)
	}
	return string(data), nil
}

// parseListing parses a sha256sums-style listing into filename to hash.
// Lines with a bare hash and no filename are keyed by the empty string.
func parseListing(text string) map[string]string {
	entries := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		switch len(fields) {
		case 0:
			continue
		case 1:
			entries[""] = fields[0]
		default:
			// Coreutils marks binary-mode entries with a leading asterisk.
			name := strings.TrimPrefix(fields[1], "*")
			entries[name] = fields[0]
		}
	}
	return entries
}

func compareDigest(d Downloaded, want string) error {
	sum := sha256.Sum256(d.Data)
	got := hex.EncodeToString(sum[:])
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: artifact %q has wrong sha256: got %s, want %s",
			interfaces.ErrArtifact, d.Name, got, want)
	}
	return nil
}
