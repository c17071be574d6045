package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// FetchedArtifact is a plan artifact together with its downloaded,
// checksum-verified contents.
type FetchedArtifact struct {
	Artifact
	Name string
	Data []byte
}

// Downloader fetches every artifact an installation plan names and verifies
// checksums before anything is handed to the installer. A verification
// failure discards all downloads; no partial install can follow.
type Downloader struct {
	fetcher  *FetcherFactory
	verifier *ChecksumVerifier
	log      *slog.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(fetcher *FetcherFactory, verifier *ChecksumVerifier, log *slog.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, verifier: verifier, log: log}
}

// DownloadAll fetches the plan's artifacts in order and runs checksum
// verification. Image-extraction plans have nothing to download and return
// an empty slice.
func (d *Downloader) DownloadAll(ctx context.Context, plan InstallationPlan) ([]FetchedArtifact, error) {
	if plan.Strategy == StrategyImageExtract {
		return nil, nil
	}

	fetched := make([]FetchedArtifact, 0, len(plan.Artifacts))
	downloads := make([]Downloaded, 0, len(plan.Artifacts))
	for _, art := range plan.Artifacts {
		src, err := d.fetcher.SourceFor(art.URL)
		if err != nil {
			return nil, err
		}
		d.log.Debug("Downloading artifact", slog.String("url", art.URL))
		data, err := src.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		fetched = append(fetched, FetchedArtifact{Artifact: art, Name: src.Filename(), Data: data})
		downloads = append(downloads, Downloaded{Name: src.Filename(), Data: data})
	}

	if err := d.verifier.VerifyAll(ctx, downloads, checksumURLs(plan.Artifacts)); err != nil {
		return nil, err
	}
	return fetched, nil
}

// DownloadWasmRuntime fetches the wasm runtime override archive, when
// configured.
func (d *Downloader) DownloadWasmRuntime(ctx context.Context, plan InstallationPlan) (FetchedArtifact, bool, error) {
	if plan.WasmRuntimeURL == "" {
		return FetchedArtifact{}, false, nil
	}
	src, err := d.fetcher.SourceFor(plan.WasmRuntimeURL)
	if err != nil {
		return FetchedArtifact{}, false, err
	}
	data, err := src.Fetch(ctx)
	if err != nil {
		return FetchedArtifact{}, false, fmt.Errorf("fetching wasm runtime: %w", err)
	}
	return FetchedArtifact{
		Artifact: Artifact{URL: plan.WasmRuntimeURL, Mode: 0o644},
		Name:     src.Filename(),
		Data:     data,
	}, true, nil
}

// checksumURLs reconstructs the verification mode from the plan: one shared
// listing URL, or one URL per artifact.
func checksumURLs(artifacts []Artifact) []string {
	urls := make([]string, 0, len(artifacts))
	allEqual, anySet := true, false
	for _, a := range artifacts {
		urls = append(urls, a.ChecksumURL)
		if a.ChecksumURL != "" {
			anySet = true
		}
		if a.ChecksumURL != artifacts[0].ChecksumURL {
			allEqual = false
		}
	}
	if !anySet {
		return nil
	}
	if allEqual {
		return urls[:1]
	}
	return urls
}

var _ interfaces.ArtifactSource = (*httpSource)(nil)
var _ interfaces.ArtifactSource = (*fileSource)(nil)
var _ interfaces.ArtifactSource = (*s3Source)(nil)
var _ interfaces.ArtifactSource = (*ipfsSource)(nil)
