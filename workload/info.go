package workload

import (
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

var versionPattern = regexp.MustCompile(`[\d]+(\.[\d]+)+`)

// Info is the local, RPC-independent view of the installed node.
type Info struct {
	BinaryVersion string   `json:"binaryVersion"`
	DataDirBytes  int64    `json:"dataDirBytes"`
	WasmFiles     []string `json:"wasmFiles"`
}

// Collect gathers local node information. Missing pieces (no binary
// installed yet, no wasm dir) yield zero values rather than errors, since
// the manager may be queried before the first provisioning run.
func Collect(ctx context.Context, layout interfaces.Layout) Info {
	return Info{
		BinaryVersion: binaryVersion(ctx, layout.BinaryPath),
		DataDirBytes:  dirSize(layout.DataDir),
		WasmFiles:     wasmFiles(layout.WasmDir),
	}
}

func binaryVersion(ctx context.Context, binaryPath string) string {
	out, err := exec.CommandContext(ctx, binaryPath, "--version").Output()
	if err != nil {
		return ""
	}
	return versionPattern.FindString(strings.TrimSpace(string(out)))
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func wasmFiles(dir string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.wasm"))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}
