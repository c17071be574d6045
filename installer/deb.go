package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/provision"
)

// installDeb installs a .deb artifact through dpkg and links the packaged
// executable to the configured binary path.
func (ins *Installer) installDeb(ctx context.Context, artifacts []provision.FetchedArtifact) ([]string, error) {
	if len(artifacts) != 1 {
		return nil, fmt.Errorf("%w: deb strategy expects exactly one artifact", interfaces.ErrInstallation)
	}
	art := artifacts[0]

	debPath := filepath.Join(ins.layout.BinaryDir(), art.Name)
	if err := os.WriteFile(debPath, art.Data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", interfaces.ErrInstallation, debPath, err)
	}
	defer os.Remove(debPath)

	out, err := ins.runner.Run(ctx, "dpkg-deb", "-f", debPath, "Package")
	if err != nil {
		return nil, fmt.Errorf("%w: reading package name: %v", interfaces.ErrArtifact, err)
	}
	pkg := strings.TrimSpace(string(out))

	if _, err := ins.runner.Run(ctx, "dpkg", "--purge", pkg); err != nil {
		return nil, fmt.Errorf("%w: purging previous %s: %v", interfaces.ErrInstallation, pkg, err)
	}
	if _, err := ins.runner.Run(ctx, "dpkg", "--install", debPath); err != nil {
		return nil, fmt.Errorf("%w: installing %s: %v", interfaces.ErrInstallation, pkg, err)
	}

	installedBinary, err := ins.findDebBinary(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(art.Destination); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: removing previous binary link: %v", interfaces.ErrInstallation, err)
	}
	if err := os.Symlink(installedBinary, art.Destination); err != nil {
		return nil, fmt.Errorf("%w: linking %s: %v", interfaces.ErrInstallation, art.Destination, err)
	}
	return []string{art.Destination}, nil
}

// findDebBinary locates the single executable the package installed under a
// bin directory. More than one candidate means we cannot know which one the
// service should run.
func (ins *Installer) findDebBinary(ctx context.Context, pkg string) (string, error) {
	out, err := ins.runner.Run(ctx, "dpkg", "-L", pkg)
	if err != nil {
		return "", fmt.Errorf("%w: listing package files: %v", interfaces.ErrInstallation, err)
	}

	var candidates []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/bin/") || strings.HasPrefix(line, "/usr/bin/") {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: package %s installed no files under /bin or /usr/bin", interfaces.ErrInstallation, pkg)
	}
	if len(candidates) > 1 {
		return "", fmt.Errorf("%w: package %s installed more than one binary (%s); cannot be sure which one to use",
			interfaces.ErrInstallation, pkg, strings.Join(candidates, ", "))
	}
	return candidates[0], nil
}
