// Package workload covers the local facts about the installed node this
// manager needs: whether its service unit is active, the managed node-key
// file, and passive information like binary version and data size. Starting
// and stopping the service is the external orchestrator's job and is
// deliberately not implemented here.
package workload

import (
	"context"
	"os/exec"
	"strings"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// SystemdSupervisor answers the service-active question through systemctl.
// It satisfies the migration engine's precondition check.
type SystemdSupervisor struct {
	// Unit is the service unit name, e.g. "polkadot.service" for the
	// binary backend or "snap.polkadot.polkadot.service" for the snap
	// backend.
	Unit string
}

// UnitFor returns the service unit name for a backend.
func UnitFor(b interfaces.Backend) string {
	if b == interfaces.BackendSnap {
		return "snap." + interfaces.NodeUser + "." + interfaces.NodeUser + ".service"
	}
	return interfaces.NodeUser + ".service"
}

func (s SystemdSupervisor) Running(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, "systemctl", "is-active", s.Unit).Output()
	state := strings.TrimSpace(string(out))
	if err != nil {
		// is-active exits nonzero for every inactive-ish state.
		if state != "" {
			return false, nil
		}
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return state == "active", nil
}

var _ interfaces.ServiceSupervisor = SystemdSupervisor{}

// EitherSupervisor reports running when any of the underlying units is
// active, used around migrations where both backends' units exist.
type EitherSupervisor []interfaces.ServiceSupervisor

func (e EitherSupervisor) Running(ctx context.Context) (bool, error) {
	for _, s := range e {
		running, err := s.Running(ctx)
		if err != nil {
			return false, err
		}
		if running {
			return true, nil
		}
	}
	return false, nil
}
