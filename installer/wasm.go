package installer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/provision"
)

// InstallWasmRuntime places a downloaded wasm runtime override archive into
// the wasm directory. Stale .wasm files from a previous override are removed
// so the node never mixes runtimes from two different downloads.
func (ins *Installer) InstallWasmRuntime(art provision.FetchedArtifact) error {
	if err := os.MkdirAll(ins.layout.WasmDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating wasm directory: %v", interfaces.ErrInstallation, err)
	}

	staging, err := os.MkdirTemp(ins.layout.WasmDir, ".extract-*")
	if err != nil {
		return fmt.Errorf("%w: creating staging directory: %v", interfaces.ErrInstallation, err)
	}
	defer os.RemoveAll(staging)

	files, err := extractTarGz(art.Data, staging)
	if err != nil {
		return err
	}

	stale, _ := filepath.Glob(filepath.Join(ins.layout.WasmDir, "*.wasm"))
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("%w: removing stale wasm file %s: %v", interfaces.ErrInstallation, f, err)
		}
	}

	for _, f := range files {
		dest := filepath.Join(ins.layout.WasmDir, filepath.Base(f))
		if err := os.Rename(f, dest); err != nil {
			return fmt.Errorf("%w: installing %s: %v", interfaces.ErrInstallation, dest, err)
		}
		ins.chownNodeUser(dest)
	}

	ins.log.Info("Installed wasm runtime override",
		slog.String("dir", ins.layout.WasmDir),
		slog.Int("files", len(files)))
	return nil
}
