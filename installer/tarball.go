package installer

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/provision"
)

// installArchive extracts a tar.gz artifact into a staging directory and
// atomically replaces the destination binary once the whole archive
// extracted cleanly.
func (ins *Installer) installArchive(artifacts []provision.FetchedArtifact) ([]string, error) {
	if len(artifacts) != 1 {
		return nil, fmt.Errorf("%w: archive strategy expects exactly one artifact", interfaces.ErrInstallation)
	}
	art := artifacts[0]

	staging, err := os.MkdirTemp(ins.layout.BinaryDir(), ".extract-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", interfaces.ErrInstallation, err)
	}
	defer os.RemoveAll(staging)

	files, err := extractTarGz(art.Data, staging)
	if err != nil {
		return nil, err
	}

	binary, err := pickExecutable(files, filepath.Base(art.Destination))
	if err != nil {
		return nil, fmt.Errorf("%w: in archive %s: %v", interfaces.ErrInstallation, art.Name, err)
	}

	if err := os.Chmod(binary, art.Mode); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInstallation, err)
	}
	if err := os.Rename(binary, art.Destination); err != nil {
		return nil, fmt.Errorf("%w: installing %s: %v", interfaces.ErrInstallation, art.Destination, err)
	}
	ins.chownNodeUser(art.Destination)
	return []string{art.Destination}, nil
}

// extractTarGz extracts every regular file from a gzipped tarball into dir,
// flattening the archive's directory structure. Returns the extracted
// paths.
func extractTarGz(data []byte, dir string) ([]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not a gzip archive: %v", interfaces.ErrArtifact, err)
	}
	defer gz.Close()

	var files []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading tar: %v", interfaces.ErrArtifact, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Base(hdr.Name)
		if name == "." || strings.HasPrefix(name, "..") {
			continue
		}
		dest := filepath.Join(dir, name)

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
		if err != nil {
			return nil, fmt.Errorf("%w: extracting %s: %v", interfaces.ErrInstallation, name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return nil, fmt.Errorf("%w: extracting %s: %v", interfaces.ErrInstallation, name, err)
		}
		out.Close()
		files = append(files, dest)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: archive contains no regular files", interfaces.ErrArtifact)
	}
	return files, nil
}

// pickExecutable selects the client binary among extracted files: an exact
// basename match wins, otherwise a single extracted file is taken as the
// binary.
func pickExecutable(files []string, wantName string) (string, error) {
	for _, f := range files {
		if filepath.Base(f) == wantName {
			return f, nil
		}
	}
	if len(files) == 1 {
		return files[0], nil
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	return "", fmt.Errorf("cannot identify client binary among %s", strings.Join(names, ", "))
}
