package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/provision"
)

// extractContainerName is the throwaway container used for docker cp.
const extractContainerName = "node-extract"

// installFromImage pulls the plan's container image and copies the
// executable (and bundled chain spec, when the plan names one) out of it.
// The image is only an extraction source; nothing is ever run from it.
func (ins *Installer) installFromImage(ctx context.Context, plan provision.InstallationPlan) ([]string, error) {
	ref := plan.Image.Image + ":" + plan.Image.Tag

	if _, err := ins.runner.Run(ctx, "docker", "pull", ref); err != nil {
		return nil, fmt.Errorf("%w: pulling %s: %v", interfaces.ErrArtifact, ref, err)
	}
	defer ins.runner.Run(ctx, "docker", "rmi", ref)

	ins.runner.Run(ctx, "docker", "rm", extractContainerName)
	if _, err := ins.runner.Run(ctx, "docker", "create", "--name", extractContainerName, ref); err != nil {
		return nil, fmt.Errorf("%w: creating container from %s: %v", interfaces.ErrArtifact, ref, err)
	}
	defer ins.runner.Run(ctx, "docker", "rm", extractContainerName)

	staging, err := os.MkdirTemp(ins.layout.BinaryDir(), ".extract-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", interfaces.ErrInstallation, err)
	}
	defer os.RemoveAll(staging)

	stagedBinary := filepath.Join(staging, filepath.Base(plan.Image.BinaryPath))
	if _, err := ins.runner.Run(ctx, "docker", "cp",
		extractContainerName+":"+plan.Image.BinaryPath, stagedBinary); err != nil {
		return nil, fmt.Errorf("%w: copying %s out of %s: %v", interfaces.ErrArtifact, plan.Image.BinaryPath, ref, err)
	}

	var stagedSpec string
	if plan.Image.SpecPath != "" {
		stagedSpec = filepath.Join(staging, filepath.Base(plan.Image.SpecPath))
		if _, err := ins.runner.Run(ctx, "docker", "cp",
			extractContainerName+":"+plan.Image.SpecPath, stagedSpec); err != nil {
			return nil, fmt.Errorf("%w: copying %s out of %s: %v", interfaces.ErrArtifact, plan.Image.SpecPath, ref, err)
		}
	}

	// Everything staged; move into place.
	if err := os.Chmod(stagedBinary, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInstallation, err)
	}
	if err := os.Rename(stagedBinary, ins.layout.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: installing %s: %v", interfaces.ErrInstallation, ins.layout.BinaryPath, err)
	}
	ins.chownNodeUser(ins.layout.BinaryPath)
	installed := []string{ins.layout.BinaryPath}

	if stagedSpec != "" {
		if err := os.MkdirAll(ins.layout.ChainSpecDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating spec directory: %v", interfaces.ErrInstallation, err)
		}
		if err := os.Rename(stagedSpec, plan.ChainSpecDestination); err != nil {
			return nil, fmt.Errorf("%w: installing chain spec: %v", interfaces.ErrInstallation, err)
		}
		ins.chownNodeUser(plan.ChainSpecDestination)
		ins.log.Info("Extracted chain spec from image",
			slog.String("image", ref),
			slog.String("dest", plan.ChainSpecDestination))
	}
	return installed, nil
}
