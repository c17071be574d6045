package interfaces

import "path/filepath"

// NodeUser is the system user the node service runs as in the binary
// backend. Installed files are chowned to it.
const NodeUser = "polkadot"

// SnapUser owns files under the snap common directory.
const SnapUser = "root"

// Layout captures the on-disk convention this manager must honor. The paths
// are dictated by the surrounding deployment, not invented here; tests
// substitute a layout rooted in a temp directory.
type Layout struct {
	// HomeDir is the node user's home, the root of the binary backend.
	HomeDir string

	// BinaryPath is the main executable. Multi-binary sets install worker
	// binaries as siblings in the same directory.
	BinaryPath string

	// ChainSpecDir holds downloaded and image-extracted chain spec files.
	ChainSpecDir string

	// NodeKeyFile is the long-lived network identity key in the binary
	// backend.
	NodeKeyFile string

	// DataDir is the chain database in the binary backend.
	DataDir string

	// WasmDir holds wasm runtime override files.
	WasmDir string

	// SnapDataDir is the chain database location in the snap backend.
	SnapDataDir string

	// SnapNodeKeyFile is the identity key location in the snap backend. It
	// is not inside SnapDataDir, which is why node-key migration is a
	// separate step from data migration.
	SnapNodeKeyFile string
}

// DefaultLayout returns the production path convention.
func DefaultLayout() Layout {
	home := filepath.Join("/home", NodeUser)
	snapCommon := filepath.Join("/var/snap", NodeUser, "common")
	return Layout{
		HomeDir:         home,
		BinaryPath:      filepath.Join(home, NodeUser),
		ChainSpecDir:    filepath.Join(home, "spec"),
		NodeKeyFile:     filepath.Join(home, "node-key"),
		DataDir:         filepath.Join(home, ".local/share/polkadot"),
		WasmDir:         filepath.Join(home, "wasm"),
		SnapDataDir:     filepath.Join(snapCommon, "polkadot_base"),
		SnapNodeKeyFile: filepath.Join(snapCommon, "node-key"),
	}
}

// BinaryDir is the directory holding the main executable and any worker
// siblings.
func (l Layout) BinaryDir() string {
	return filepath.Dir(l.BinaryPath)
}

// DataDirFor returns the chain-data directory for a backend.
func (l Layout) DataDirFor(b Backend) string {
	if b == BackendSnap {
		return l.SnapDataDir
	}
	return l.DataDir
}

// NodeKeyFileFor returns the identity-key path for a backend.
func (l Layout) NodeKeyFileFor(b Backend) string {
	if b == BackendSnap {
		return l.SnapNodeKeyFile
	}
	return l.NodeKeyFile
}

// OwnerFor returns the expected file owner for a backend's files.
func (l Layout) OwnerFor(b Backend) string {
	if b == BackendSnap {
		return SnapUser
	}
	return NodeUser
}
