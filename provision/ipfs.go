package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// ipfsSource fetches one object through an IPFS API node.
//
// URL format: ipfs://host:port/CID[/path/inside/dag]
type ipfsSource struct {
	shell   *shell.Shell
	ipfsRef string
	log     *slog.Logger
}

func newIPFSSource(u *url.URL, log *slog.Logger) (*ipfsSource, error) {
	ref := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || ref == "" {
		return nil, fmt.Errorf("%w: ipfs url must be ipfs://host:port/cid", interfaces.ErrConfiguration)
	}
	return &ipfsSource{
		shell:   shell.NewShell(u.Host),
		ipfsRef: ref,
		log:     log,
	}, nil
}

func (s *ipfsSource) Fetch(ctx context.Context) ([]byte, error) {
	reader, err := s.shell.Cat("/ipfs/" + s.ipfsRef)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching ipfs %s: %v", interfaces.ErrArtifact, s.ipfsRef, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ipfs %s: %v", interfaces.ErrArtifact, s.ipfsRef, err)
	}

	s.log.Debug("Fetched artifact from IPFS",
		slog.String("ref", s.ipfsRef),
		slog.Int("size", len(data)))
	return data, nil
}

func (s *ipfsSource) Filename() string { return path.Base(s.ipfsRef) }
