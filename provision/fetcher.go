package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// FetcherFactory creates artifact sources from URL strings. The scheme
// selects the transport:
//
//   - http:// and https:// - plain HTTP download
//   - file:// - local filesystem, used mainly by tests and air-gapped nodes
//   - s3:// - S3 or compatible object storage
//   - ipfs:// - IPFS API node
//
// Returns an error for unsupported schemes.
type FetcherFactory struct {
	log    *slog.Logger
	client *http.Client
}

// NewFetcherFactory creates a factory. The HTTP client is shared across
// sources; callers apply timeout policy through the context.
func NewFetcherFactory(log *slog.Logger) *FetcherFactory {
	return &FetcherFactory{
		log:    log,
		client: &http.Client{},
	}
}

// SourceFor creates an artifact source for a URL.
func (f *FetcherFactory) SourceFor(rawURL string) (interfaces.ArtifactSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid artifact url %q: %v", interfaces.ErrConfiguration, rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return &httpSource{url: rawURL, client: f.client, log: f.log}, nil
	case "file":
		return &fileSource{path: u.Path, log: f.log}, nil
	case "s3":
		return newS3Source(u, f.log)
	case "ipfs":
		return newIPFSSource(u, f.log)
	default:
		return nil, fmt.Errorf("%w: unsupported artifact url scheme %q", interfaces.ErrConfiguration, u.Scheme)
	}
}

// Fetch downloads a URL and returns its contents, resolving the source by
// scheme.
func (f *FetcherFactory) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	src, err := f.SourceFor(rawURL)
	if err != nil {
		return nil, err
	}
	return src.Fetch(ctx)
}

// FetchToFile downloads a URL directly to a local path.
func (f *FetcherFactory) FetchToFile(ctx context.Context, rawURL, dest string) error {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", interfaces.ErrArtifact, dest, err)
	}
	f.log.Debug("Downloaded file", slog.String("url", rawURL), slog.String("dest", dest))
	return nil
}

// Basename returns the filename component of a URL, used to name installed
// artifacts and to match checksum listing entries.
func Basename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}

type httpSource struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func (s *httpSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrArtifact, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", interfaces.ErrArtifact, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: fetching %s: status %d: %s", interfaces.ErrArtifact, s.url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", interfaces.ErrArtifact, s.url, err)
	}

	s.log.Debug("Fetched artifact over HTTP",
		slog.String("url", s.url),
		slog.Int("size", len(data)))
	return data, nil
}

func (s *httpSource) Filename() string { return Basename(s.url) }

type fileSource struct {
	path string
	log  *slog.Logger
}

func (s *fileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", interfaces.ErrArtifact, s.path, err)
	}
	return data, nil
}

func (s *fileSource) Filename() string { return path.Base(s.path) }
