// Package installer executes installation plans produced by the provision
// package. Extraction happens in a staging directory and the final
// destinations are replaced atomically only after every file in the plan is
// ready, so a failed run never leaves a half-updated installation. The
// installer never starts or stops the node service.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/provision"
)

// manifestName lists the binaries the previous run installed, so switching
// between single-binary and multi-binary plans can clean up unused siblings.
const manifestName = ".installed-binaries"

// CommandRunner abstracts the external tools (dpkg, docker) the installer
// shells out to, so tests can intercept them.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Installer places executables and bundled spec files at their final
// filesystem locations.
type Installer struct {
	layout interfaces.Layout
	runner CommandRunner
	log    *slog.Logger
}

// New creates an installer using the real command runner.
func New(layout interfaces.Layout, log *slog.Logger) *Installer {
	return &Installer{layout: layout, runner: execRunner{}, log: log}
}

// NewWithRunner creates an installer with a custom command runner.
func NewWithRunner(layout interfaces.Layout, runner CommandRunner, log *slog.Logger) *Installer {
	return &Installer{layout: layout, runner: runner, log: log}
}

// Apply executes the plan. artifacts are the plan's downloaded and verified
// contents; image-extraction plans take none. Apply is idempotent: running
// it twice with identical inputs yields an identical filesystem state.
func (ins *Installer) Apply(ctx context.Context, plan provision.InstallationPlan, artifacts []provision.FetchedArtifact) error {
	if err := os.MkdirAll(ins.layout.BinaryDir(), 0o755); err != nil {
		return fmt.Errorf("%w: creating binary directory: %v", interfaces.ErrInstallation, err)
	}

	var installed []string
	var err error
	switch plan.Strategy {
	case provision.StrategySingleBinary, provision.StrategyBinarySet:
		installed, err = ins.installBinaries(artifacts)
	case provision.StrategyArchive:
		installed, err = ins.installArchive(artifacts)
	case provision.StrategyDebPackage:
		installed, err = ins.installDeb(ctx, artifacts)
	case provision.StrategyImageExtract:
		installed, err = ins.installFromImage(ctx, plan)
	default:
		return fmt.Errorf("%w: unknown strategy %v", interfaces.ErrInstallation, plan.Strategy)
	}
	if err != nil {
		return err
	}

	ins.cleanupSiblings(installed)
	ins.writeManifest(installed)

	ins.log.Info("Installation complete",
		slog.String("strategy", plan.Strategy.String()),
		slog.Int("files", len(installed)))
	return nil
}

// installBinaries stages every downloaded binary next to its destination and
// renames them into place only once all of them staged successfully.
func (ins *Installer) installBinaries(artifacts []provision.FetchedArtifact) ([]string, error) {
	staged := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, s := range staged {
			os.Remove(s)
		}
	}

	for _, art := range artifacts {
		tmp := art.Destination + ".staged"
		if err := os.WriteFile(tmp, art.Data, art.Mode); err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: staging %s: %v", interfaces.ErrInstallation, art.Destination, err)
		}
		staged = append(staged, tmp)
	}

	installed := make([]string, 0, len(artifacts))
	for i, art := range artifacts {
		if err := os.Rename(staged[i], art.Destination); err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: installing %s: %v", interfaces.ErrInstallation, art.Destination, err)
		}
		ins.chownNodeUser(art.Destination)
		installed = append(installed, art.Destination)
	}
	return installed, nil
}

// cleanupSiblings removes binaries recorded by the previous run that the new
// plan no longer installs, e.g. worker siblings left over after switching
// from a multi-binary set back to a single binary.
func (ins *Installer) cleanupSiblings(installed []string) {
	current := make(map[string]bool, len(installed))
	for _, p := range installed {
		current[p] = true
	}
	for _, prev := range ins.readManifest() {
		if current[prev] {
			continue
		}
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			ins.log.Warn("Failed to remove unused binary", slog.String("path", prev), "err", err)
			continue
		}
		ins.log.Info("Removed unused binary from previous installation", slog.String("path", prev))
	}
}

func (ins *Installer) manifestPath() string {
	return filepath.Join(ins.layout.BinaryDir(), manifestName)
}

func (ins *Installer) readManifest() []string {
	data, err := os.ReadFile(ins.manifestPath())
	if err != nil {
		return nil
	}
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

func (ins *Installer) writeManifest(installed []string) {
	data := strings.Join(installed, "\n") + "\n"
	if err := os.WriteFile(ins.manifestPath(), []byte(data), 0o644); err != nil {
		ins.log.Warn("Failed to write installation manifest", "err", err)
	}
}

// chownNodeUser sets ownership to the node user. Ownership changes need
// root; failure is logged and ignored so unprivileged runs (tests, dry
// deployments) still work.
func (ins *Installer) chownNodeUser(path string) {
	u, err := user.Lookup(interfaces.NodeUser)
	if err != nil {
		ins.log.Debug("Node user not present, skipping chown", slog.String("path", path))
		return
	}
	uid, err1 := strconv.Atoi(u.Uid)
	gid, err2 := strconv.Atoi(u.Gid)
	if err1 != nil || err2 != nil {
		return
	}
	if err := os.Chown(path, uid, gid); err != nil {
		ins.log.Warn("Failed to chown installed file", slog.String("path", path), "err", err)
	}
}
