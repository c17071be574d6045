package workload

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// WriteNodeKey writes the network identity key file for the given backend
// with 0600 permissions and the backend's user as owner. The caller must
// have stopped the service first; swapping the identity key under a running
// node is not safe.
func WriteNodeKey(layout interfaces.Layout, b interfaces.Backend, key string, log *slog.Logger) error {
	if key == "" {
		return fmt.Errorf("%w: node key must not be empty", interfaces.ErrConfiguration)
	}
	path := layout.NodeKeyFileFor(b)
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return fmt.Errorf("writing node key: %w", err)
	}
	chownOwner(path, layout.OwnerFor(b), log)
	log.Info("Node key written", slog.String("path", path))
	return nil
}

func chownOwner(path, owner string, log *slog.Logger) {
	u, err := user.Lookup(owner)
	if err != nil {
		log.Debug("Owner not present, skipping chown", slog.String("path", path), slog.String("owner", owner))
		return
	}
	uid, err1 := strconv.Atoi(u.Uid)
	gid, err2 := strconv.Atoi(u.Gid)
	if err1 != nil || err2 != nil {
		return
	}
	if err := os.Chown(path, uid, gid); err != nil {
		log.Warn("Failed to chown node key", slog.String("path", path), "err", err)
	}
}
